package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/chatbridge/chatbridge/internal/contacts"
	"github.com/chatbridge/chatbridge/internal/query"
	"github.com/chatbridge/chatbridge/internal/schedule"
	"github.com/chatbridge/chatbridge/internal/search"
	"github.com/chatbridge/chatbridge/internal/transport"
)

const defaultContextWindow = 5

type handlers struct {
	engine    query.Engine
	search    *search.Engine
	resolver  *contacts.Resolver
	schedules *schedule.Store
	transport transport.Transport
}

// getIDArg extracts a required positive integer ID from the arguments map.
func getIDArg(args map[string]any, key string) (int64, error) {
	v, ok := args[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%s parameter is required", key)
	}
	if v != math.Trunc(v) || v < 1 || v > math.MaxInt64 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return int64(v), nil
}

// getTimeArg extracts an optional instant from the arguments map. Accepts
// RFC 3339 or a bare date, which is read as midnight UTC.
func getTimeArg(args map[string]any, key string) (*time.Time, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s time %q: expected RFC 3339 or YYYY-MM-DD", key, v)
	}
	return &t, nil
}

// intArg extracts a non-negative integer from a map, with a default.
// JSON numbers arrive as float64. Clamps to query.MaxLimit.
func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > float64(query.MaxLimit) {
		return query.MaxLimit
	}
	return int(v)
}

// enrich fills sender names when a contact resolver is wired.
func (h *handlers) enrich(ctx context.Context, msgs []query.Message) []query.Message {
	if h.resolver == nil {
		return msgs
	}
	return query.EnrichWithNames(ctx, h.resolver, msgs)
}

func (h *handlers) listMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	filter := query.Filter{
		Limit: intArg(args, "limit", 0),
	}
	if v, ok := args["contact"].(string); ok && v != "" {
		filter.ContactID = v
	}
	if v, ok := args["text"].(string); ok && v != "" {
		filter.Text = v
	}
	if v, ok := args["conversation_id"].(float64); ok {
		id := int64(v)
		filter.ConversationID = &id
	}
	var err error
	if filter.After, err = getTimeArg(args, "after"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if filter.Before, err = getTimeArg(args, "before"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msgs, err := h.engine.ListMessages(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(h.enrich(ctx, msgs))
}

func (h *handlers) getMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, err := getIDArg(args, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msg, err := h.engine.GetMessage(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("message not found: %v", err)), nil
	}

	enriched := h.enrich(ctx, []query.Message{*msg})
	return jsonResult(enriched[0])
}

func (h *handlers) searchMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	queryStr, _ := args["query"].(string)
	if queryStr == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	semantic, _ := args["semantic"].(bool)
	limit := intArg(args, "limit", 0)

	results, err := h.search.Search(ctx, queryStr, limit, semantic)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(results)
}

func (h *handlers) getContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, err := getIDArg(args, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	before := intArg(args, "before", defaultContextWindow)
	after := intArg(args, "after", defaultContextWindow)

	msgs, err := h.engine.GetContext(ctx, id, before, after)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("context failed: %v", err)), nil
	}
	return jsonResult(h.enrich(ctx, msgs))
}

func (h *handlers) listConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	convos, err := h.engine.ListConversations(ctx, intArg(args, "limit", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(convos)
}

func (h *handlers) resolveContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	identifier, _ := args["identifier"].(string)
	if identifier == "" {
		return mcp.NewToolResultError("identifier parameter is required"), nil
	}

	normalized := contacts.Normalize(identifier)
	name := h.resolver.Resolve(ctx, identifier)
	if name == "" {
		// No directory match; the identifier is the best label available.
		name = normalized
	}
	resp := struct {
		Identifier string `json:"identifier"`
		Name       string `json:"name"`
	}{
		Identifier: normalized,
		Name:       name,
	}
	return jsonResult(resp)
}

func (h *handlers) sendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	recipient, _ := args["recipient"].(string)
	body, _ := args["body"].(string)
	if recipient == "" {
		return mcp.NewToolResultError("recipient parameter is required"), nil
	}
	if body == "" {
		return mcp.NewToolResultError("body parameter is required"), nil
	}
	if err := contacts.ValidRecipient(recipient); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	channel, err := h.transport.Send(ctx, contacts.Normalize(recipient), body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("send failed: %v", err)), nil
	}

	resp := struct {
		Recipient string `json:"recipient"`
		Channel   string `json:"channel"`
	}{
		Recipient: contacts.Normalize(recipient),
		Channel:   string(channel),
	}
	return jsonResult(resp)
}

func (h *handlers) scheduleMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	recipient, _ := args["recipient"].(string)
	body, _ := args["body"].(string)
	timeStr, _ := args["scheduled_time"].(string)
	if recipient == "" {
		return mcp.NewToolResultError("recipient parameter is required"), nil
	}
	if body == "" {
		return mcp.NewToolResultError("body parameter is required"), nil
	}
	when, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid scheduled_time %q: expected RFC 3339", timeStr)), nil
	}

	d, err := h.schedules.Schedule(recipient, body, when)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("schedule failed: %v", err)), nil
	}
	return jsonResult(d)
}

func (h *handlers) cancelScheduled(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, _ := args["id"].(string)
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	if err := h.schedules.Cancel(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cancel failed: %v", err)), nil
	}

	resp := struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}{ID: id, Status: string(schedule.StatusCancelled)}
	return jsonResult(resp)
}

func (h *handlers) listScheduled(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := h.schedules.List()
	if entries == nil {
		entries = []schedule.Delivery{}
	}
	return jsonResult(entries)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
