package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/failure"
	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
	"github.com/kailas-cloud/contactdex/internal/domain/search/result"
	"github.com/kailas-cloud/contactdex/internal/usecase/recovery"
)

func TestDecodeRecords(t *testing.T) {
	in := `[
		{"id": "SG COM-1", "phone": "+65 6123 4567", "company_name": "Acme", "status": true,
		 "timestamp": "2026-01-02T03:04:05Z", "attributes": {"source": "crm"}},
		{"id": "SG COM-2", "phone": "555", "status": "invalid"},
		{"id": "SG COM-3", "phone": "556", "status": null}
	]`

	got, err := DecodeRecords(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Acme", got[0].CompanyName())
	assert.Equal(t, record.StatusValid, got[0].Status())
	assert.True(t, got[0].HasTimestamp())
	v, ok := got[0].Attribute("source")
	assert.True(t, ok)
	assert.Equal(t, "crm", v)

	assert.Equal(t, record.StatusInvalid, got[1].Status())
	assert.Equal(t, record.StatusUnknown, got[2].Status())
	assert.False(t, got[2].HasTimestamp())
}

func TestDecodeRecords_Errors(t *testing.T) {
	_, err := DecodeRecords(strings.NewReader(`{"id": "x"}`))
	assert.Error(t, err)

	_, err = DecodeRecords(strings.NewReader(`[{"id": "", "phone": "1"}]`))
	assert.ErrorContains(t, err, "index 0")

	_, err = DecodeRecords(strings.NewReader(`[{"id": "a", "status": 3}]`))
	assert.ErrorContains(t, err, "status must be")
}

func TestRecordRoundTripThroughDomain(t *testing.T) {
	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rec := record.Reconstruct("SG COM-9", "555",
		record.WithEmail("a@b.c"), record.WithStatus(record.StatusInvalid), record.WithTimestamp(ts))

	out := RecordFromDomain(rec)
	assert.Equal(t, "SG COM-9", out.ID)
	assert.Equal(t, Status("invalid"), out.Status)
	require.NotNil(t, out.Timestamp)
	assert.Equal(t, ts, *out.Timestamp)

	back, err := out.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, rec.Email(), back.Email())
	assert.Equal(t, rec.Status(), back.Status())
}

func TestFiltersCriteria(t *testing.T) {
	var nilFilters *Filters
	assert.True(t, nilFilters.Criteria().IsEmpty())

	f := &Filters{Phone: "555", Status: "valid", DateRange: &DateRange{Start: "2026-01-01", End: "2026-02-01"}}
	c := f.Criteria()
	assert.Equal(t, "555", c.Phone)
	require.NotNil(t, c.DateRange)
	assert.Equal(t, "2026-02-01", c.DateRange.End)
	assert.Equal(t, []string{"phone", "status", "dateRange"}, c.Active())
}

func TestSearchResultFromDomain(t *testing.T) {
	res := &result.SearchResult{
		Records:       []record.Record{record.Reconstruct("SG COM-1", "555")},
		Total:         1,
		Query:         "SG COM-1*",
		Kind:          query.Wildcard,
		State:         result.StateFailed,
		ExecutionTime: 1500 * time.Microsecond,
		Pagination:    result.Paginate(1, 1, 20),
		Error: &result.ErrorInfo{
			Kind: failure.KindIndex, Strategy: "fallback_search", Message: "index", Fallback: true, Recovered: true,
		},
	}

	out := SearchResultFromDomain(res)
	assert.True(t, out.Error)
	assert.True(t, out.Fallback)
	assert.InDelta(t, 1.5, out.ExecutionTimeMs, 0.0001)
	require.NotNil(t, out.ErrorInfo)
	assert.Equal(t, "fallback_search", out.ErrorInfo.Strategy)
	assert.Equal(t, 1, out.Pagination.TotalPages)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"wildcard"`)
}

func TestSearchResultFromDomain_EmptyRecordsEncodeAsArray(t *testing.T) {
	out := SearchResultFromDomain(&result.SearchResult{State: result.StateDone})
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"records":[]`)
	assert.Nil(t, out.ErrorInfo)
}

func TestErrorStatsFromDomain(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	out := ErrorStatsFromDomain(recovery.Stats{
		Total:           2,
		ErrorsByType:    map[failure.Kind]int{failure.KindTimeout: 2},
		MostCommonError: failure.KindTimeout,
		Recent:          []recovery.Entry{{At: at, Kind: failure.KindTimeout, Strategy: recovery.StrategyTimeout}},
	})

	assert.Equal(t, 2, out.ErrorsByType["timeout"])
	assert.Equal(t, "timeout", out.MostCommonError)
	require.Len(t, out.Recent, 1)
	assert.Equal(t, "timeout_recovery", out.Recent[0].Strategy)
}
