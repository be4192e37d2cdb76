package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/GTBitsOfGood/bit-bot/internal/platform/errors"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/engine"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/slack"
)

// eventsPayload is the envelope Slack posts to the events webhook.
type eventsPayload struct {
	Type      string       `json:"type"`
	Challenge string       `json:"challenge"`
	Event     inboundEvent `json:"event"`
}

type inboundEvent struct {
	Type        string `json:"type"`
	ChannelType string `json:"channel_type"`
	ClientMsgID string `json:"client_msg_id"`
	Channel     string `json:"channel"`
	User        string `json:"user"`
	Text        string `json:"text"`
	Timestamp   string `json:"ts"`
}

// interactivityPayload is the block-action envelope from the interactivity
// webhook; it arrives form-encoded under the "payload" key.
type interactivityPayload struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	Actions []struct {
		ActionID       string `json:"action_id"`
		SelectedOption struct {
			Value string `json:"value"`
		} `json:"selected_option"`
	} `json:"actions"`
}

const selectTeamActionID = "select_team_action"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"health": s.envLabel})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload eventsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	switch payload.Type {
	case "url_verification":
		writeJSON(w, http.StatusOK, map[string]string{"challenge": payload.Challenge})
		return
	case "event_callback":
		s.processEvent(r.Context(), payload.Event)
		w.WriteHeader(http.StatusOK)
		return
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// processEvent routes one callback event through the engine and posts the
// outcome back to the platform. Failures never surface to the webhook
// response; Slack would retry and replay the event.
func (s *Server) processEvent(ctx context.Context, ev inboundEvent) {
	switch ev.Type {
	case "app_mention":
		if len(s.allowedChannels) > 0 && !s.allowedChannels[ev.Channel] {
			return
		}
	case "message":
		if ev.ChannelType != "im" {
			return
		}
		if ev.User == s.botUserID {
			return
		}
	default:
		return
	}

	result, err := s.engine.HandleEvent(ctx, engine.Event{
		ID:        ev.ClientMsgID,
		ChannelID: ev.Channel,
		UserID:    ev.User,
		Timestamp: ev.Timestamp,
		Text:      ev.Text,
	})
	if err != nil {
		s.postAudit(ctx, fmt.Sprintf("<@%s>: an exception occurred - %v", ev.User, err))
		s.annotate(ctx, ev, slack.ReactionFailure)
		return
	}
	if result.Duplicate || result.Ignored {
		return
	}

	s.deliver(ctx, ev.Channel, result)
	s.annotate(ctx, ev, slack.ReactionSuccess)
}

func (s *Server) handleInteractivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload interactivityPayload
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if len(payload.Actions) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}

	action := payload.Actions[0]
	if action.ActionID == selectTeamActionID {
		result, err := s.engine.ApplyTeamSelection(r.Context(), payload.User.ID, action.SelectedOption.Value)
		if err != nil {
			s.postAudit(r.Context(), fmt.Sprintf("<@%s>: an exception occurred - %v", payload.User.ID, err))
			writeJSON(w, http.StatusOK, map[string]string{})
			return
		}
		s.deliver(r.Context(), payload.Channel.ID, result)
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) handleAnalyticsLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if _, err := s.slack.PostMessage(r.Context(), s.analyticsChannel, body.Message); err != nil {
		s.logger.Printf("relay analytics log: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": body.Message})
}

func (s *Server) handleMapscout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	text := fmt.Sprintf("Mapscout Waitlist Notification: `%s`", body.Email)
	if _, err := s.slack.PostMessage(r.Context(), s.waitlistChannel, text); err != nil {
		s.logger.Printf("relay waitlist notification: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "email": body.Email})
}

func (s *Server) handleIntegrationGiveBits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The header may carry "Bearer <token>" or the bare token.
	token := r.Header.Get("Authorization")
	if idx := strings.LastIndex(token, " "); idx >= 0 {
		token = token[idx+1:]
	}
	if s.integrationSecret == "" || token != s.integrationSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"message": "You are not authorized to access this route",
		})
		return
	}

	var body struct {
		IntegrationName string `json:"integration_name"`
		Amount          int64  `json:"amount"`
		UserID          string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	result, err := s.engine.IntegrationGrant(r.Context(), body.IntegrationName, body.UserID, body.Amount)
	if err != nil {
		s.postAudit(r.Context(), fmt.Sprintf("%s: an exception occurred - %v", body.IntegrationName, err))
		writeJSON(w, apperrors.CodeOf(err).HTTPStatus(), map[string]any{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	s.deliver(r.Context(), "", result)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%s: successfully gave bits to %s", body.IntegrationName, body.UserID),
	})
}

// deliver posts an engine result: replies and the team picker to the origin
// channel, audit lines to the audit channel. Posting failures are logged,
// never propagated; the command already ran.
func (s *Server) deliver(ctx context.Context, channelID string, result engine.Result) {
	if channelID != "" {
		for _, reply := range result.Replies {
			if _, err := s.slack.PostMessage(ctx, channelID, reply); err != nil {
				s.logger.Printf("post reply: %v", err)
			}
		}
		if len(result.TeamOptions) > 0 {
			if _, err := s.slack.PostBlocks(ctx, channelID, teamPickerBlocks(result.TeamOptions)); err != nil {
				s.logger.Printf("post team picker: %v", err)
			}
		}
	}
	for _, line := range result.Audit {
		s.postAudit(ctx, line)
	}
}

// teamPickerBlocks builds the static-select layout whose submission the
// interactivity webhook handles under selectTeamActionID.
func teamPickerBlocks(teams []string) []slack.Block {
	options := make([]slack.OptionObject, 0, len(teams))
	for _, team := range teams {
		options = append(options, slack.OptionObject{
			Text:  slack.TextObject{Type: "plain_text", Text: team},
			Value: team,
		})
	}
	return []slack.Block{{
		Type:    "actions",
		BlockID: "action1",
		Elements: []slack.BlockElement{{
			Type:        "static_select",
			ActionID:    selectTeamActionID,
			Placeholder: &slack.TextObject{Type: "plain_text", Text: "Which team are you on?"},
			Options:     options,
		}},
	}}
}

func (s *Server) postAudit(ctx context.Context, text string) {
	if s.auditChannel == "" {
		return
	}
	if _, err := s.slack.PostMessage(ctx, s.auditChannel, text); err != nil {
		s.logger.Printf("post audit line: %v", err)
	}
}

func (s *Server) annotate(ctx context.Context, ev inboundEvent, reaction string) {
	if ev.Channel == "" || ev.Timestamp == "" {
		return
	}
	if err := s.slack.AddReaction(ctx, ev.Channel, ev.Timestamp, reaction); err != nil {
		s.logger.Printf("annotate message: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
