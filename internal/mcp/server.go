// Package mcp exposes the message store, search, contacts, sending, and
// scheduling operations as MCP tools over stdio.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chatbridge/chatbridge/internal/contacts"
	"github.com/chatbridge/chatbridge/internal/query"
	"github.com/chatbridge/chatbridge/internal/schedule"
	"github.com/chatbridge/chatbridge/internal/search"
	"github.com/chatbridge/chatbridge/internal/transport"
)

// Tool name constants.
const (
	ToolListMessages    = "list_messages"
	ToolGetMessage      = "get_message"
	ToolSearchMessages  = "search_messages"
	ToolGetContext      = "get_context"
	ToolListChats       = "list_conversations"
	ToolResolveContact  = "resolve_contact"
	ToolSendMessage     = "send_message"
	ToolScheduleMessage = "schedule_message"
	ToolCancelScheduled = "cancel_scheduled_message"
	ToolListScheduled   = "list_scheduled_messages"
)

// Common argument helpers for recurring tool option definitions.

func withLimit(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum results to return (default "+defaultDesc+")"),
	)
}

func withRecipient() mcp.ToolOption {
	return mcp.WithString("recipient",
		mcp.Required(),
		mcp.Description("Phone number (E.164 or national) or email address"),
	)
}

func withBody() mcp.ToolOption {
	return mcp.WithString("body",
		mcp.Required(),
		mcp.Description("Message text to send"),
	)
}

// Serve creates an MCP server with messaging tools and serves over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, deps Deps) error {
	s := server.NewMCPServer(
		"chatbridge",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := &handlers{
		engine:    deps.Engine,
		search:    deps.Search,
		resolver:  deps.Resolver,
		schedules: deps.Schedules,
		transport: deps.Transport,
	}

	s.AddTool(listMessagesTool(), h.listMessages)
	s.AddTool(getMessageTool(), h.getMessage)
	s.AddTool(searchMessagesTool(), h.searchMessages)
	s.AddTool(getContextTool(), h.getContext)
	s.AddTool(listConversationsTool(), h.listConversations)
	s.AddTool(resolveContactTool(), h.resolveContact)
	s.AddTool(sendMessageTool(), h.sendMessage)
	s.AddTool(scheduleMessageTool(), h.scheduleMessage)
	s.AddTool(cancelScheduledTool(), h.cancelScheduled)
	s.AddTool(listScheduledTool(), h.listScheduled)

	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// Deps carries the wired components the tool handlers operate on.
type Deps struct {
	Engine    query.Engine
	Search    *search.Engine
	Resolver  *contacts.Resolver
	Schedules *schedule.Store
	Transport transport.Transport
}

func listMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolListMessages,
		mcp.WithDescription("List messages newest first with optional filters. All filters combine with AND."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("contact",
			mcp.Description("Filter by sender or recipient handle (phone or email)"),
		),
		mcp.WithNumber("conversation_id",
			mcp.Description("Restrict to one conversation"),
		),
		mcp.WithString("text",
			mcp.Description("Substring match on message text"),
		),
		mcp.WithString("after",
			mcp.Description("Only messages at or after this instant (RFC 3339 or YYYY-MM-DD)"),
		),
		mcp.WithString("before",
			mcp.Description("Only messages before this instant (RFC 3339 or YYYY-MM-DD)"),
		),
		withLimit("50"),
	)
}

func getMessageTool() mcp.Tool {
	return mcp.NewTool(ToolGetMessage,
		mcp.WithDescription("Get one message by ID, with the sender resolved to a contact name when possible."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Message ID"),
		),
	)
}

func searchMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchMessages,
		mcp.WithDescription("Search message text. Lexical by default; set semantic=true for embedding similarity ranking. The response reports which mode actually ran, since semantic silently degrades to lexical when embeddings are unavailable."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text"),
		),
		mcp.WithBoolean("semantic",
			mcp.Description("Rank by embedding similarity instead of substring match"),
		),
		withLimit("50"),
	)
}

func getContextTool() mcp.Tool {
	return mcp.NewTool(ToolGetContext,
		mcp.WithDescription("Get the messages surrounding a given message in its conversation, oldest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Message ID to center the window on"),
		),
		mcp.WithNumber("before",
			mcp.Description("Messages to include before the target (default 5)"),
		),
		mcp.WithNumber("after",
			mcp.Description("Messages to include after the target (default 5)"),
		),
	)
}

func listConversationsTool() mcp.Tool {
	return mcp.NewTool(ToolListChats,
		mcp.WithDescription("List conversations by most recent activity, with participants and message counts."),
		mcp.WithReadOnlyHintAnnotation(true),
		withLimit("50"),
	)
}

func resolveContactTool() mcp.Tool {
	return mcp.NewTool(ToolResolveContact,
		mcp.WithDescription("Resolve a phone number or email to a contact name. Falls back to the normalized identifier when no contact matches."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Phone number or email address"),
		),
	)
}

func sendMessageTool() mcp.Tool {
	return mcp.NewTool(ToolSendMessage,
		mcp.WithDescription("Send a message now via iMessage, falling back to SMS when iMessage delivery fails."),
		withRecipient(),
		withBody(),
	)
}

func scheduleMessageTool() mcp.Tool {
	return mcp.NewTool(ToolScheduleMessage,
		mcp.WithDescription("Schedule a message for future delivery. The sweep daemon sends it once the time arrives."),
		withRecipient(),
		withBody(),
		mcp.WithString("scheduled_time",
			mcp.Required(),
			mcp.Description("Delivery time, RFC 3339 (e.g. 2026-09-01T09:00:00Z). Must be in the future."),
		),
	)
}

func cancelScheduledTool() mcp.Tool {
	return mcp.NewTool(ToolCancelScheduled,
		mcp.WithDescription("Cancel a pending scheduled message. Sent, failed, or already-cancelled messages cannot be cancelled."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Scheduled message ID (from schedule_message or list_scheduled_messages)"),
		),
	)
}

func listScheduledTool() mcp.Tool {
	return mcp.NewTool(ToolListScheduled,
		mcp.WithDescription("List scheduled messages in every state: pending, sent, failed, and cancelled."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
