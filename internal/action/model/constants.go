package model

// ActionType is the tag stored on an ActionRecord that selects the implementation.
type ActionType string

const (
	ActionHTTP             ActionType = "http_action"
	ActionSlotSet          ActionType = "slot_set_action"
	ActionFormValidation   ActionType = "form_validation_action"
	ActionEmail            ActionType = "email_action"
	ActionGoogleSearch     ActionType = "google_search_action"
	ActionWebSearch        ActionType = "web_search_action"
	ActionJira             ActionType = "jira_action"
	ActionZendesk          ActionType = "zendesk_action"
	ActionPipedriveLeads   ActionType = "pipedrive_leads_action"
	ActionHubspotForms     ActionType = "hubspot_forms_action"
	ActionRazorpay         ActionType = "razorpay_action"
	ActionTwoStageFallback ActionType = "two_stage_fallback"
	ActionBotResponse      ActionType = "kairon_bot_response"
	ActionPrompt           ActionType = "prompt_action"
	ActionPyscript         ActionType = "pyscript_action"
	ActionDatabase         ActionType = "database_action"
	ActionCallback         ActionType = "callback_action"
	ActionSchedule         ActionType = "schedule_action"
	ActionParallel         ActionType = "parallel_action"
	ActionFlow             ActionType = "flow_action"
)

// ActionTypes lists every tag the runtime can execute.
var ActionTypes = []ActionType{
	ActionHTTP, ActionSlotSet, ActionFormValidation, ActionEmail, ActionGoogleSearch,
	ActionWebSearch, ActionJira, ActionZendesk, ActionPipedriveLeads, ActionHubspotForms,
	ActionRazorpay, ActionTwoStageFallback, ActionBotResponse, ActionPrompt, ActionPyscript,
	ActionDatabase, ActionCallback, ActionSchedule, ActionParallel, ActionFlow,
}

const (
	// UtterancePrefix marks a canned template; such names bypass the registry.
	UtterancePrefix = "utter_"
	// ResponseSlot mirrors whatever the action dispatched, or would have dispatched.
	ResponseSlot = "kairon_action_response"
	// BotSlot carries the tenant id on every tracker.
	BotSlot = "bot"
	// RequestedSlot names the slot a form is asking for.
	RequestedSlot = "requested_slot"
	// UserMessageEntity carries the original user text when the message was an encoded intent.
	UserMessageEntity = "kairon_user_msg"
	// NLUFallbackTemplate is uttered when the two stage fallback has no suggestions.
	NLUFallbackTemplate = "utter_default"
	// DefaultFailureResponse is dispatched when a config has no failure message.
	DefaultFailureResponse = "I have failed to process your request."
	// RequestTimestampHeader carries the UTC send time on outbound action requests.
	RequestTimestampHeader = "X-Kairon-Request-Timestamp"
)

// ReservedSlots may not be overwritten by script output.
var ReservedSlots = map[string]struct{}{
	BotSlot:       {},
	ResponseSlot:  {},
	RequestedSlot: {},
	"session_started_metadata": {},
}

// Status of an action invocation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// ParameterSource selects where a ParameterSpec takes its value from.
type ParameterSource string

const (
	SourceLiteral     ParameterSource = "value"
	SourceSlot        ParameterSource = "slot"
	SourceSenderID    ParameterSource = "sender_id"
	SourceUserMessage ParameterSource = "user_message"
	SourceIntent      ParameterSource = "intent"
	SourceChatLog     ParameterSource = "chat_log"
	SourceKeyVault    ParameterSource = "key_vault"
)

// Evaluation modes for response composition.
const (
	EvaluationExpression = "expression"
	EvaluationScript     = "script"
)

// Dispatch types for bot replies.
const (
	DispatchText = "text"
	DispatchJSON = "json"
)

// Collection names in the document store.
const (
	CollectionActions           = "actions"
	CollectionKeyVault          = "key_vault"
	CollectionActionLogs        = "action_server_logs"
	CollectionHTTPAction        = "http_action"
	CollectionSlotSetAction     = "slot_set_action"
	CollectionFormValidation    = "form_validation_action"
	CollectionEmailAction       = "email_action"
	CollectionGoogleSearch      = "google_search_action"
	CollectionWebSearch         = "web_search_action"
	CollectionJiraAction        = "jira_action"
	CollectionZendeskAction     = "zendesk_action"
	CollectionPipedriveAction   = "pipedrive_leads_action"
	CollectionHubspotAction     = "hubspot_forms_action"
	CollectionRazorpayAction    = "razorpay_action"
	CollectionTwoStageFallback  = "two_stage_fallback"
	CollectionPromptAction      = "prompt_action"
	CollectionPyscriptAction    = "pyscript_action"
	CollectionDatabaseAction    = "database_action"
	CollectionCallbackAction    = "callback_action"
	CollectionCallbackConfig    = "callback_config"
	CollectionCallbackData      = "callback_data"
	CollectionCallbackLog       = "callback_log"
	CollectionScheduleAction    = "schedule_action"
	CollectionParallelAction    = "parallel_action"
	CollectionFlowAction        = "flow_action"
	CollectionCollectionData    = "collection_data"
	CollectionTrainingExamples  = "training_examples"
	CollectionMailChannelConfig = "mail_channel_config"
	CollectionMailChannelState  = "mail_channel_state"
	CollectionMailResponseLog   = "mail_response_log"
	CollectionScheduledJobs     = "kscheduler"
	CollectionMailJobs          = "mail_scheduler"
)

// ConfigCollection maps an action type to the collection holding its config.
var ConfigCollection = map[ActionType]string{
	ActionHTTP:             CollectionHTTPAction,
	ActionSlotSet:          CollectionSlotSetAction,
	ActionFormValidation:   CollectionFormValidation,
	ActionEmail:            CollectionEmailAction,
	ActionGoogleSearch:     CollectionGoogleSearch,
	ActionWebSearch:        CollectionWebSearch,
	ActionJira:             CollectionJiraAction,
	ActionZendesk:          CollectionZendeskAction,
	ActionPipedriveLeads:   CollectionPipedriveAction,
	ActionHubspotForms:     CollectionHubspotAction,
	ActionRazorpay:         CollectionRazorpayAction,
	ActionTwoStageFallback: CollectionTwoStageFallback,
	ActionPrompt:           CollectionPromptAction,
	ActionPyscript:         CollectionPyscriptAction,
	ActionDatabase:         CollectionDatabaseAction,
	ActionCallback:         CollectionCallbackAction,
	ActionSchedule:         CollectionScheduleAction,
	ActionParallel:         CollectionParallelAction,
	ActionFlow:             CollectionFlowAction,
}
