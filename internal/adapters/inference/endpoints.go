package inference

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	perr "provenance/internal/platform/errors"
)

// CreateBatch submits every item under one model config and returns the
// provider's batch id. Submission is at-least-once: callers must persist
// the returned id before acting on it, or a crash can strand the batch
func (c *Client) CreateBatch(ctx context.Context, req BatchRequest) (BatchHandle, error) {
	if len(req.Items) == 0 {
		return BatchHandle{}, perr.InvalidArgf("inference create batch with no items")
	}
	if req.Config.Model == "" {
		return BatchHandle{}, perr.InvalidArgf("inference create batch without model")
	}

	wire := wireCreateReq{Requests: make([]wireRequest, 0, len(req.Items))}
	for _, it := range req.Items {
		if it.CustomID == "" {
			return BatchHandle{}, perr.InvalidArgf("inference batch item without custom id")
		}
		wire.Requests = append(wire.Requests, wireRequest{
			CustomID: it.CustomID,
			Params: wireParams{
				Model:       req.Config.Model,
				MaxTokens:   req.Config.MaxTokens,
				Temperature: req.Config.Temperature,
				System:      it.System,
				Messages:    []wireMessage{{Role: "user", Content: it.User}},
			},
		})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return BatchHandle{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "inference marshal batch")
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/batches", body)
	if err != nil {
		return BatchHandle{}, err
	}
	defer c.closeBody(resp, "/v1/batches")

	var out wireBatch
	if err := decodeJSON(resp.Body, &out); err != nil {
		return BatchHandle{}, perr.Wrapf(err, perr.ErrorCodeProvider, "inference decode create response")
	}
	if out.ID == "" {
		return BatchHandle{}, perr.Providerf("inference create returned no batch id")
	}
	return BatchHandle{ID: out.ID, CreatedAt: out.CreatedAt}, nil
}

// GetBatch polls the processing state and per-disposition counts
func (c *Client) GetBatch(ctx context.Context, id string) (BatchStatus, error) {
	if id == "" {
		return BatchStatus{}, perr.InvalidArgf("inference get batch without id")
	}
	path := "/v1/batches/" + id
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return BatchStatus{}, err
	}
	defer c.closeBody(resp, path)

	var out wireBatch
	if err := decodeJSON(resp.Body, &out); err != nil {
		return BatchStatus{}, perr.Wrapf(err, perr.ErrorCodeProvider, "inference decode batch status")
	}
	return BatchStatus{ID: out.ID, State: out.ProcessingStatus, Counts: out.RequestCounts}, nil
}

// ListResults streams the per-item outcomes of an ended batch. The
// provider emits one JSON object per line keyed by custom id; ordering is
// not meaningful and callers must rejoin by id
func (c *Client) ListResults(ctx context.Context, id string) ([]ResultItem, error) {
	if id == "" {
		return nil, perr.InvalidArgf("inference list results without id")
	}
	path := "/v1/batches/" + id + "/results"
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer c.closeBody(resp, path)

	var out []ResultItem
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var wr wireResultLine
		if err := json.Unmarshal([]byte(line), &wr); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeProvider, "inference decode result line %d", lineNo)
		}
		out = append(out, resultFromWire(wr))
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "inference read results")
	}
	return out, nil
}

func resultFromWire(wr wireResultLine) ResultItem {
	r := ResultItem{
		CustomID:   wr.CustomID,
		Type:       wr.Result.Type,
		StopReason: wr.Result.Message.StopReason,
		ErrType:    wr.Result.Error.Type,
		ErrMessage: wr.Result.Error.Message,
	}
	var text strings.Builder
	for _, c := range wr.Result.Message.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	r.Text = text.String()
	return r
}

func (c *Client) closeBody(resp *http.Response, path string) {
	if cerr := resp.Body.Close(); cerr != nil {
		c.log.Error().Err(cerr).Str("path", path).Msg("inference close body failed")
	}
}

func decodeJSON(r io.Reader, v any) error {
	b, err := io.ReadAll(io.LimitReader(r, 8<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
