package service

import (
	"provenance/internal/adapters/inference"
	"provenance/internal/core/schema"
	"provenance/internal/services/batch/domain"
)

// evaluatePass joins provider results against the full job membership
func evaluatePass(job domain.Job, results []inference.ResultItem, pass int) []domain.ItemResult {
	return evaluateSubset(job, job.RecordIDs, results, pass)
}

// evaluateSubset types every expected record's outcome. Joining is by
// record id only; result ordering from the provider carries no meaning.
// Records the provider never answered for count as provider errors
func evaluateSubset(job domain.Job, expected []string, results []inference.ResultItem, pass int) []domain.ItemResult {
	byID := make(map[string]inference.ResultItem, len(results))
	for _, r := range results {
		byID[r.CustomID] = r
	}

	out := make([]domain.ItemResult, 0, len(expected))
	for _, id := range expected {
		r, ok := byID[id]
		if !ok {
			out = append(out, domain.ItemResult{
				RecordID:    id,
				Pass:        pass,
				FailureKind: domain.FailProviderError,
				Detail:      "no result returned for record",
			})
			continue
		}
		out = append(out, evaluateItem(id, r, pass, job.SchemaVersion))
	}
	return out
}

// evaluateItem classifies one provider result
func evaluateItem(id string, r inference.ResultItem, pass int, schemaVersion string) domain.ItemResult {
	res := domain.ItemResult{RecordID: id, Pass: pass}

	switch r.Type {
	case inference.ResultErrored:
		res.FailureKind = domain.FailProviderError
		res.Detail = r.ErrType + ": " + r.ErrMessage
		return res
	case inference.ResultExpired:
		res.FailureKind = domain.FailTimeout
		res.Detail = "request expired before processing"
		return res
	case inference.ResultCanceled:
		res.FailureKind = domain.FailProviderError
		res.Detail = "request canceled by provider"
		return res
	}

	if r.Truncated() {
		res.FailureKind = domain.FailOutputTruncated
		res.Detail = "generation stopped at token ceiling"
		return res
	}

	payload := []byte(r.Text)
	ok, violations := schema.Validate(payload, schemaVersion)
	if !ok {
		res.FailureKind = domain.FailSchemaInvalid
		res.Detail = joinViolations(violations)
		return res
	}

	res.OK = true
	res.Payload = payload
	return res
}

func joinViolations(vs []string) string {
	const maxDetail = 512
	out := ""
	for i, v := range vs {
		if i > 0 {
			out += "; "
		}
		out += v
		if len(out) > maxDetail {
			return out[:maxDetail]
		}
	}
	return out
}
