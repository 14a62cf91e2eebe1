package peripherals

// Outbound message kinds.
const (
	MsgDraw    = "draw_to_canvas"
	MsgTone    = "tone"
	MsgNoTone  = "no_tone"
	MsgConsole = "console_write"
	MsgStatus  = "status"
	MsgError   = "error"
	MsgSketch  = "sketch"
	MsgList    = "sketches"
	MsgHello   = "hello"
)

// Inbound message kinds.
const (
	MsgRun    = "run"
	MsgButton = "button"
	MsgStop   = "stop"
	MsgSave   = "save"
	MsgLoad   = "load"
	MsgLs     = "list"
)

// Outbound is a message from a run to its client. Fields not used by a
// kind are left empty.
type Outbound struct {
	Message   string   `json:"message"`
	OnPixels  []int    `json:"on_pixels,omitempty"`
	Frequency int      `json:"frequency,omitempty"`
	Text      string   `json:"text,omitempty"`
	Panic     bool     `json:"panic,omitempty"`
	State     string   `json:"state,omitempty"`
	Line      int      `json:"line,omitempty"`
	Name      string   `json:"name,omitempty"`
	Code      string   `json:"code,omitempty"`
	Names     []string `json:"names,omitempty"`
	Session   string   `json:"session,omitempty"`
}

// Inbound is a message from a client.
type Inbound struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Button  string `json:"button,omitempty"`
	State   bool   `json:"state,omitempty"`
	Name    string `json:"name,omitempty"`
}

var inboundKinds = map[string]bool{
	MsgRun: true, MsgButton: true, MsgStop: true,
	MsgSave: true, MsgLoad: true, MsgLs: true,
}
