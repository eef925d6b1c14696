package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/logwatch/pkg/contract"
	"github.com/codeready-toolchain/logwatch/pkg/costguard"
	"github.com/codeready-toolchain/logwatch/pkg/embedding"
	"github.com/codeready-toolchain/logwatch/pkg/logstore"
	"github.com/codeready-toolchain/logwatch/pkg/models"
	"github.com/codeready-toolchain/logwatch/pkg/planner"
)

// logQueryArgs mirrors LogQueryRequest as wire-decodable JSON, the shared
// input shape for log_search, log_aggregate, and dry_run (spec §4.6).
type logQueryArgs struct {
	TimeWindowHours int    `json:"time_window_hours"`
	Limit           int    `json:"limit"`
	Severity        string `json:"severity"`
	Service         string `json:"service"`
	Search          string `json:"search"`
	TraceID         string `json:"trace_id"`
	GroupBy         string `json:"group_by"`
}

func (a logQueryArgs) toRequest() planner.LogQueryRequest {
	return planner.LogQueryRequest{
		TimeWindowHours: a.TimeWindowHours,
		Limit:           a.Limit,
		Severity:        models.Severity(a.Severity),
		Service:         a.Service,
		Search:          a.Search,
		TraceID:         a.TraceID,
		GroupBy:         contract.GroupByField(a.GroupBy),
	}
}

// RegisterCatalog binds the five closed tools (spec §4.6) to reg, backed by
// the given planner/store/guard/searcher.
func RegisterCatalog(reg *Registry, p *planner.Planner, store *logstore.Store, guard *costguard.Guard, searcher *embedding.Searcher) {
	reg.Register("log_search", logSearchHandler(p, store))
	reg.Register("log_aggregate", logAggregateHandler(p, store))
	reg.Register("trace_lookup", traceLookupHandler(store))
	reg.Register("similar_errors", similarErrorsHandler(searcher))
	reg.Register("dry_run", dryRunHandler(p, guard))
}

func logSearchHandler(p *planner.Planner, store *logstore.Store) Handler {
	return func(ctx context.Context, raw json.RawMessage) (Result, error) {
		var args logQueryArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return Result{Content: fmt.Sprintf("invalid log_search arguments: %s", err), IsError: true}, nil
		}

		rows, err := store.List(ctx, p, args.toRequest())
		if err != nil {
			return Result{Content: err.Error(), IsError: true}, nil
		}

		body, _ := json.Marshal(map[string]any{"rows": rows, "returned_count": len(rows)})
		return Result{Content: string(body)}, nil
	}
}

func logAggregateHandler(p *planner.Planner, store *logstore.Store) Handler {
	return func(ctx context.Context, raw json.RawMessage) (Result, error) {
		var args logQueryArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return Result{Content: fmt.Sprintf("invalid log_aggregate arguments: %s", err), IsError: true}, nil
		}

		buckets, err := store.Aggregate(ctx, p, args.toRequest())
		if err != nil {
			return Result{Content: err.Error(), IsError: true}, nil
		}

		body, _ := json.Marshal(map[string]any{"buckets": buckets})
		return Result{Content: string(body)}, nil
	}
}

func traceLookupHandler(store *logstore.Store) Handler {
	return func(ctx context.Context, raw json.RawMessage) (Result, error) {
		var args struct {
			TraceID string `json:"trace_id"`
		}
		if err := json.Unmarshal(raw, &args); err != nil || args.TraceID == "" {
			return Result{Content: "trace_lookup requires a non-empty trace_id", IsError: true}, nil
		}

		rows, err := store.TraceLookup(ctx, args.TraceID)
		if err != nil {
			return Result{Content: err.Error(), IsError: true}, nil
		}

		body, _ := json.Marshal(map[string]any{"rows": rows})
		return Result{Content: string(body)}, nil
	}
}

func similarErrorsHandler(searcher *embedding.Searcher) Handler {
	return func(ctx context.Context, raw json.RawMessage) (Result, error) {
		var args struct {
			Text  string `json:"text"`
			RowID string `json:"row_id"`
			K     int    `json:"k"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return Result{Content: fmt.Sprintf("invalid similar_errors arguments: %s", err), IsError: true}, nil
		}
		if args.K <= 0 {
			args.K = 5
		}

		var matches []embedding.ClusterMatch
		var err error
		switch {
		case args.Text != "":
			matches, err = searcher.SearchText(ctx, args.Text, args.K)
		case args.RowID != "":
			matches, err = searcher.SearchRow(ctx, args.RowID, args.K)
		default:
			return Result{Content: "similar_errors requires text or row_id", IsError: true}, nil
		}
		if err != nil {
			return Result{Content: err.Error(), IsError: true}, nil
		}

		body, _ := json.Marshal(map[string]any{"clusters": matches})
		return Result{Content: string(body)}, nil
	}
}

func dryRunHandler(p *planner.Planner, guard *costguard.Guard) Handler {
	return func(ctx context.Context, raw json.RawMessage) (Result, error) {
		var args logQueryArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return Result{Content: fmt.Sprintf("invalid dry_run arguments: %s", err), IsError: true}, nil
		}

		req := args.toRequest()
		var q planner.Query
		var err error
		if req.GroupBy != "" {
			q, err = p.BuildAggregate(req)
		} else {
			q, err = p.BuildList(req)
		}
		if err != nil {
			return Result{Content: err.Error(), IsError: true}, nil
		}

		estimated, err := guard.EstimateOnly(ctx, q)
		if err != nil {
			return Result{Content: err.Error(), IsError: true}, nil
		}

		body, _ := json.Marshal(map[string]any{"estimated_bytes": estimated})
		return Result{Content: string(body)}, nil
	}
}
