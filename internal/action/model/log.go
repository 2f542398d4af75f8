package model

import "time"

type (
	TriggerInfo struct {
		ID   string `bson:"trigger_id" json:"trigger_id"`
		Name string `bson:"trigger_name" json:"trigger_name"`
		Type string `bson:"trigger_type" json:"trigger_type"`
	}

	// ActionServerLog is the audit record written once per invocation.
	ActionServerLog struct {
		Type          ActionType     `bson:"type"`
		Intent        string         `bson:"intent"`
		Action        string         `bson:"action"`
		Sender        string         `bson:"sender"`
		Bot           string         `bson:"bot"`
		Status        Status         `bson:"status"`
		UserMsg       string         `bson:"user_msg"`
		BotResponse   any            `bson:"bot_response"`
		Exception     string         `bson:"exception,omitempty"`
		Request       any            `bson:"request,omitempty"`
		Response      any            `bson:"response,omitempty"`
		Headers       map[string]any `bson:"headers,omitempty"`
		URL           string         `bson:"url,omitempty"`
		Messages      []string       `bson:"messages,omitempty"`
		ExecutionInfo map[string]any `bson:"execution_info,omitempty"`
		Extra         map[string]any `bson:"extra,omitempty"`
		Timestamp     time.Time      `bson:"timestamp"`
		TriggerInfo   *TriggerInfo   `bson:"trigger_info,omitempty"`
	}

	// MailChannelState tracks the inbox cursor for one bot.
	MailChannelState struct {
		Bot          string `bson:"bot"`
		LastEmailUID uint32 `bson:"last_email_uid"`
		EventID      string `bson:"event_id"`
	}

	MailResponseLog struct {
		Bot       string         `bson:"bot"`
		Sender    string         `bson:"sender_id"`
		UID       uint32         `bson:"uid"`
		Subject   string         `bson:"subject"`
		Body      string         `bson:"body"`
		Slots     map[string]any `bson:"slots,omitempty"`
		Responses []string       `bson:"responses,omitempty"`
		Status    string         `bson:"status"`
		Exception string         `bson:"exception,omitempty"`
		Timestamp time.Time      `bson:"timestamp"`
	}
)

// MailResponseLog statuses.
const (
	MailProcessing = "Processing"
	MailSuccess    = "SUCCESS"
	MailFailed     = "FAILED"
)
