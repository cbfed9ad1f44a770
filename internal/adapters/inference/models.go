package inference

import "time"

// Batch processing states reported by the provider
const (
	ProcessingInProgress = "in_progress"
	ProcessingCanceling  = "canceling"
	ProcessingEnded      = "ended"
)

// Result types on individual batch items
const (
	ResultSucceeded = "succeeded"
	ResultErrored   = "errored"
	ResultCanceled  = "canceled"
	ResultExpired   = "expired"
)

// ModelConfig is the inference configuration applied to every item of a
// batch. A fallback pass submits the same items under a stronger config
type ModelConfig struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Item is one rendered request keyed by the caller's correlation id
type Item struct {
	CustomID string
	System   string
	User     string
}

// BatchRequest is a full submission
type BatchRequest struct {
	Config ModelConfig
	Items  []Item
}

// BatchHandle identifies a submitted batch
type BatchHandle struct {
	ID        string
	CreatedAt time.Time
}

// Counts breaks a batch down by item disposition
type Counts struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

// Done reports whether every item has reached a terminal disposition
func (c Counts) Done() bool { return c.Processing == 0 }

// Total sums all dispositions
func (c Counts) Total() int {
	return c.Processing + c.Succeeded + c.Errored + c.Canceled + c.Expired
}

// BatchStatus is one poll observation
type BatchStatus struct {
	ID     string
	State  string // one of the Processing* constants
	Counts Counts
}

// Ended reports whether the provider finished processing the batch
func (s BatchStatus) Ended() bool { return s.State == ProcessingEnded }

// ResultItem is one per-item outcome keyed by the caller's correlation id
type ResultItem struct {
	CustomID   string
	Type       string // one of the Result* constants
	Text       string // raw model output when Type is succeeded
	StopReason string
	ErrType    string
	ErrMessage string
}

// Succeeded reports whether the provider produced output for the item.
// Truncated output still reports true here; the caller inspects StopReason
func (r ResultItem) Succeeded() bool { return r.Type == ResultSucceeded }

// Truncated reports whether generation stopped at the token ceiling
func (r ResultItem) Truncated() bool { return r.StopReason == "max_tokens" }

// wire shapes

type wireCreateReq struct {
	Requests []wireRequest `json:"requests"`
}

type wireRequest struct {
	CustomID string     `json:"custom_id"`
	Params   wireParams `json:"params"`
}

type wireParams struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system"`
	Messages    []wireMessage `json:"messages"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireBatch struct {
	ID               string    `json:"id"`
	ProcessingStatus string    `json:"processing_status"`
	RequestCounts    Counts    `json:"request_counts"`
	CreatedAt        time.Time `json:"created_at"`
}

type wireResultLine struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string `json:"type"`
		Message struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			StopReason string `json:"stop_reason"`
		} `json:"message"`
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"result"`
}
