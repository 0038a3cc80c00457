package tools

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

type CheckCalendarInput struct {
	DaysAhead int `json:"days_ahead,omitempty"`
}

type CheckCalendarOutput struct {
	Slots []string `json:"slots"`
	Note  string   `json:"note,omitempty"`
}

func createCheckCalendarTool(deps Deps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCheckCalendar,
			Desc: "List the dealership's available visit slots over the next few days. Always call this before proposing visit times; never invent times.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"days_ahead": {
					Type: "number",
					Desc: "How many days ahead to look (default 3, max 7).",
				},
			}),
		},
		func(ctx context.Context, in *CheckCalendarInput) (*CheckCalendarOutput, error) {
			days := in.DaysAhead
			if days <= 0 {
				days = 3
			}
			if days > 7 {
				days = 7
			}

			slots, err := deps.Calendar.FreeSlots(ctx, deps.now(), days)
			if err != nil {
				return nil, err
			}
			out := &CheckCalendarOutput{Slots: make([]string, 0, len(slots))}
			for _, s := range slots {
				out.Slots = append(out.Slots, s.Format(time.RFC3339))
			}
			if len(out.Slots) == 0 {
				out.Note = "No free slots in this window; try more days ahead."
			}
			return out, nil
		},
	)
}

type ScheduleAppointmentInput struct {
	Datetime   string `json:"datetime"`
	ClientName string `json:"client_name"`
}

type ScheduleAppointmentOutput struct {
	Error     string `json:"error,omitempty"`
	Note      string `json:"note,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
	Confirmed string `json:"confirmed_for,omitempty"`
}

// placeholder names the model tends to fill in when it has no real name
var placeholderNames = []string{
	"cliente", "client", "customer", "amigo", "usuario", "user", "unknown", "n/a", "the client",
}

func createScheduleAppointmentTool(deps Deps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolScheduleAppointment,
			Desc: "Book a dealership visit. Only call this after the client has agreed to a specific slot from check_calendar_availability, and only with the client's real name and an exact date and time. Never call it with a guessed time or a placeholder name.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"datetime": {
					Type:     "string",
					Desc:     "Exact appointment time in RFC3339 (e.g. 2026-03-14T10:00:00-05:00) or 'YYYY-MM-DD HH:MM'. Relative phrases like 'mañana' are not accepted; resolve them against the calendar slots first.",
					Required: true,
				},
				"client_name": {
					Type:     "string",
					Desc:     "The client's real name as they gave it. Ask for it if you don't have it.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *ScheduleAppointmentInput) (*ScheduleAppointmentOutput, error) {
			turn := TurnFrom(ctx)
			if turn == nil || turn.Session == nil {
				return &ScheduleAppointmentOutput{Error: "no_active_session"}, nil
			}

			at, ok := parseAppointmentTime(in.Datetime)
			if !ok {
				return &ScheduleAppointmentOutput{
					Error: "unresolved_datetime",
					Note:  "The time must be an exact date and time. Check availability and confirm a concrete slot with the client first.",
				}, nil
			}
			if !at.After(deps.now()) {
				return &ScheduleAppointmentOutput{
					Error: "datetime_in_past",
					Note:  "That time has already passed. Offer a future slot.",
				}, nil
			}
			// the model sometimes fills in a placeholder even when the
			// channel delivered a real display name; prefer the argument,
			// fall back to the channel name, refuse only when both fail
			name := in.ClientName
			if !isRealName(name) {
				name = turn.ClientName
			}
			if !isRealName(name) {
				return &ScheduleAppointmentOutput{
					Error: "missing_client_name",
					Note:  "Ask the client for their name before booking.",
				}, nil
			}

			booking, err := deps.Calendar.Book(ctx, turn.Session.ClientID, at)
			if err != nil {
				return nil, err
			}
			turn.RecordBooking(booking)

			return &ScheduleAppointmentOutput{
				BookingID: booking.ID,
				Confirmed: booking.At.Format(time.RFC3339),
			}, nil
		},
	)
}

func parseAppointmentTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isRealName(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, p := range placeholderNames {
		if name == p {
			return false
		}
	}
	return true
}
