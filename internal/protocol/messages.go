// Package protocol defines the NPC Society wire message schema.
//
// Messages are envelopes with exactly one variant set, mirroring the
// versioned protobuf oneof on the wire. The daemon core treats the
// encoding itself as opaque; this package only provides the typed
// schema and variant classification. Correlation fields added in v1.1
// (directive_id, stream_id, voice_id, volume) are optional — an absent
// field means "uncorrelated", never an error.
package protocol

// ClientVariant identifies which variant a ClientMessage carries.
type ClientVariant int

const (
	ClientEmpty ClientVariant = iota
	ClientHello
	ClientWorldTick
	ClientChatObservation
	ClientEventObservation
	ClientVoicePcmFrame
	ClientActionResult
)

// String returns the variant name for logging.
func (v ClientVariant) String() string {
	switch v {
	case ClientHello:
		return "hello"
	case ClientWorldTick:
		return "world_tick"
	case ClientChatObservation:
		return "chat_observation"
	case ClientEventObservation:
		return "event_observation"
	case ClientVoicePcmFrame:
		return "voice_pcm_frame"
	case ClientActionResult:
		return "action_result"
	default:
		return "empty"
	}
}

// ClientMessage is the plugin-to-daemon envelope. At most one field is set.
type ClientMessage struct {
	Hello            *Hello            `json:"hello,omitempty"`
	WorldTick        *WorldTick        `json:"world_tick,omitempty"`
	ChatObservation  *ChatObservation  `json:"chat_observation,omitempty"`
	EventObservation *EventObservation `json:"event_observation,omitempty"`
	VoicePcmFrame    *VoicePcmFrame    `json:"voice_pcm_frame,omitempty"`
	ActionResult     *ActionResult     `json:"action_result,omitempty"`
}

// Variant classifies the message. An envelope with no variant set
// (possible with older or buggy peers) classifies as ClientEmpty.
func (m *ClientMessage) Variant() ClientVariant {
	switch {
	case m.Hello != nil:
		return ClientHello
	case m.WorldTick != nil:
		return ClientWorldTick
	case m.ChatObservation != nil:
		return ClientChatObservation
	case m.EventObservation != nil:
		return ClientEventObservation
	case m.VoicePcmFrame != nil:
		return ClientVoicePcmFrame
	case m.ActionResult != nil:
		return ClientActionResult
	default:
		return ClientEmpty
	}
}

// ServerMessage is the daemon-to-plugin envelope. At most one field is set.
type ServerMessage struct {
	ActionDirective *ActionDirective `json:"action_directive,omitempty"`
	SpeakDirective  *SpeakDirective  `json:"speak_directive,omitempty"`
	AudioChunk      *AudioChunk      `json:"audio_chunk,omitempty"`
}

// Hello is the plugin handshake. voice_available, server_name and
// daemon_mode are v1.1+ additions and may be absent from older peers.
type Hello struct {
	PluginVersion    string `json:"plugin_version"`
	ProtocolVersion  string `json:"protocol_version"`
	ServerID         string `json:"server_id"`
	MinecraftVersion string `json:"minecraft_version"`
	VoiceAvailable   bool   `json:"voice_available,omitempty"`
	ServerName       string `json:"server_name,omitempty"`
	DaemonMode       string `json:"daemon_mode,omitempty"`
}

// Position is an entity position within a world.
type Position struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

// BlockPosition is an integer block coordinate.
type BlockPosition struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

// NpcSnapshot is the per-tick state of one daemon-controlled NPC.
type NpcSnapshot struct {
	NpcID           string    `json:"npc_id"`
	EntityUUID      string    `json:"entity_uuid"`
	Position        *Position `json:"position,omitempty"`
	HealthNorm      float32   `json:"health_norm"`
	HungerNorm      float32   `json:"hunger_norm"`
	InCombat        bool      `json:"in_combat"`
	HeldItem        string    `json:"held_item,omitempty"`
	CurrentActivity string    `json:"current_activity,omitempty"`
}

// PlayerSnapshot is the per-tick state of a nearby player.
type PlayerSnapshot struct {
	PlayerUUID string    `json:"player_uuid"`
	PlayerName string    `json:"player_name"`
	Position   *Position `json:"position,omitempty"`
	HealthNorm float32   `json:"health_norm"`
	HeldItem   string    `json:"held_item,omitempty"`
	Sneaking   bool      `json:"sneaking"`
	Sprinting  bool      `json:"sprinting"`
	GameMode   string    `json:"game_mode,omitempty"`
}

// WorldTick is the periodic world-state snapshot.
type WorldTick struct {
	ServerTick    int64             `json:"server_tick"`
	TimestampMs   int64             `json:"timestamp_ms"`
	Npcs          []*NpcSnapshot    `json:"npcs,omitempty"`
	NearbyPlayers []*PlayerSnapshot `json:"nearby_players,omitempty"`
}

// ChatObservation is chat heard near an NPC.
type ChatObservation struct {
	NpcID       string  `json:"npc_id"`
	PlayerUUID  string  `json:"player_uuid"`
	PlayerName  string  `json:"player_name"`
	Message     string  `json:"message"`
	TimestampMs int64   `json:"timestamp_ms"`
	Distance    float32 `json:"distance"`
}

// EventObservation is a game event witnessed by an NPC.
type EventObservation struct {
	NpcID       string `json:"npc_id"`
	EventType   string `json:"event_type"`
	Detail      string `json:"detail,omitempty"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// VoicePcmFrame carries raw captured voice audio from a player near an
// NPC. Inbound voice is not directive-correlated.
type VoicePcmFrame struct {
	NpcID        string `json:"npc_id"`
	PlayerUUID   string `json:"player_uuid"`
	PcmData      []byte `json:"pcm_data"`
	Sequence     int64  `json:"sequence"`
	TimestampMs  int64  `json:"timestamp_ms"`
	SampleRateHz int    `json:"sample_rate_hz,omitempty"`
	Format       string `json:"format,omitempty"`
}

// ActionKind identifies the action payload variant on a directive.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionMove
	ActionBreakBlock
	ActionScanBlocks
	ActionDepositToChest
)

func (k ActionKind) String() string {
	switch k {
	case ActionMove:
		return "move"
	case ActionBreakBlock:
		return "break_block"
	case ActionScanBlocks:
		return "scan_blocks"
	case ActionDepositToChest:
		return "deposit_to_chest"
	default:
		return "unknown"
	}
}

// MoveAction asks an NPC to walk to a target position.
type MoveAction struct {
	Target   *Position `json:"target"`
	Speed    float32   `json:"speed"`
	Pathfind bool      `json:"pathfind"`
}

// BreakBlockAction asks an NPC to break the block at a position.
type BreakBlockAction struct {
	Position *BlockPosition `json:"position"`
}

// ScanBlocksAction asks an NPC to scan for matching block types within
// a radius of its current position.
type ScanBlocksAction struct {
	BlockTypes []string `json:"block_types"`
	Radius     int      `json:"radius"`
}

// DepositToChestAction asks an NPC to deposit carried items into the
// nearest chest, optionally at a known position.
type DepositToChestAction struct {
	ChestPosition *BlockPosition `json:"chest_position,omitempty"`
	Items         []string       `json:"items,omitempty"`
}

// ActionDirective instructs the plugin to have an NPC perform one
// action. Exactly one action variant is set.
type ActionDirective struct {
	DirectiveID string `json:"directive_id"`
	NpcID       string `json:"npc_id"`
	Priority    int    `json:"priority"`

	Move           *MoveAction           `json:"move,omitempty"`
	BreakBlock     *BreakBlockAction     `json:"break_block,omitempty"`
	ScanBlocks     *ScanBlocksAction     `json:"scan_blocks,omitempty"`
	DepositToChest *DepositToChestAction `json:"deposit_to_chest,omitempty"`
}

// Action classifies the directive's action payload.
func (d *ActionDirective) Action() ActionKind {
	switch {
	case d.Move != nil:
		return ActionMove
	case d.BreakBlock != nil:
		return ActionBreakBlock
	case d.ScanBlocks != nil:
		return ActionScanBlocks
	case d.DepositToChest != nil:
		return ActionDepositToChest
	default:
		return ActionUnknown
	}
}

// SpeakDirective instructs the plugin to display/voice NPC speech.
// DirectiveID and StreamID are v1.1+ correlation fields; StreamID links
// the directive to the AudioChunk stream that follows it.
type SpeakDirective struct {
	NpcID       string  `json:"npc_id"`
	Text        string  `json:"text"`
	Emotion     string  `json:"emotion,omitempty"`
	DurationMs  int     `json:"duration_ms,omitempty"`
	DirectiveID string  `json:"directive_id,omitempty"`
	VoiceID     string  `json:"voice_id,omitempty"`
	Volume      float32 `json:"volume,omitempty"`
	StreamID    string  `json:"stream_id,omitempty"`
}

// AudioChunk is one frame of synthesized NPC speech. Chunks for a
// stream carry strictly increasing sequence numbers starting at 0; the
// final chunk is flagged.
type AudioChunk struct {
	NpcID       string `json:"npc_id"`
	StreamID    string `json:"stream_id"`
	PcmData     []byte `json:"pcm_data"`
	Sequence    int64  `json:"sequence"`
	IsFinal     bool   `json:"is_final"`
	DirectiveID string `json:"directive_id,omitempty"`
}

// ResultKind identifies the result payload variant on an ActionResult.
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultMove
	ResultBreakBlock
	ResultScanBlocks
	ResultDepositToChest
)

func (k ResultKind) String() string {
	switch k {
	case ResultMove:
		return "move_result"
	case ResultBreakBlock:
		return "break_block_result"
	case ResultScanBlocks:
		return "scan_blocks_result"
	case ResultDepositToChest:
		return "deposit_to_chest_result"
	default:
		return "none"
	}
}

// MoveResult reports where a move ended up.
type MoveResult struct {
	FinalPosition      *Position `json:"final_position,omitempty"`
	ReachedDestination bool      `json:"reached_destination"`
}

// BreakBlockResult reports a completed block break and what dropped.
type BreakBlockResult struct {
	DroppedItems []string `json:"dropped_items,omitempty"`
}

// BlockMatch is one hit from a block scan.
type BlockMatch struct {
	Position  *BlockPosition `json:"position"`
	BlockType string         `json:"block_type"`
}

// ScanBlocksResult lists matching blocks in peer-determined order.
type ScanBlocksResult struct {
	Matches []*BlockMatch `json:"matches,omitempty"`
}

// DepositToChestResult reports a completed deposit.
type DepositToChestResult struct {
	DepositedItems []string `json:"deposited_items,omitempty"`
}

// ActionResult is the plugin's response to exactly one directive,
// correlated via DirectiveID.
type ActionResult struct {
	DirectiveID  string `json:"directive_id"`
	NpcID        string `json:"npc_id"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`

	MoveResult           *MoveResult           `json:"move_result,omitempty"`
	BreakBlockResult     *BreakBlockResult     `json:"break_block_result,omitempty"`
	ScanBlocksResult     *ScanBlocksResult     `json:"scan_blocks_result,omitempty"`
	DepositToChestResult *DepositToChestResult `json:"deposit_to_chest_result,omitempty"`
}

// Result classifies the result payload, if any.
func (r *ActionResult) Result() ResultKind {
	switch {
	case r.MoveResult != nil:
		return ResultMove
	case r.BreakBlockResult != nil:
		return ResultBreakBlock
	case r.ScanBlocksResult != nil:
		return ResultScanBlocks
	case r.DepositToChestResult != nil:
		return ResultDepositToChest
	default:
		return ResultNone
	}
}
