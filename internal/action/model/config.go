package model

import "time"

type (
	// ActionRecord binds an action name to its implementation type for one bot.
	ActionRecord struct {
		Bot    string     `bson:"bot" json:"bot" yaml:"bot"`
		Name   string     `bson:"name" json:"name" yaml:"name"`
		Type   ActionType `bson:"type" json:"type" yaml:"type"`
		Status bool       `bson:"status" json:"status" yaml:"status"`
	}

	// KeyVaultEntry is an encrypted per-bot secret.
	KeyVaultEntry struct {
		Bot   string `bson:"bot" json:"bot"`
		Key   string `bson:"key" json:"key"`
		Value string `bson:"value" json:"value"`
	}

	// ParameterSpec declares one request parameter and where its value comes from.
	ParameterSpec struct {
		Key     string          `bson:"key" json:"key" yaml:"key"`
		Value   string          `bson:"value" json:"value" yaml:"value"`
		Source  ParameterSource `bson:"parameter_type" json:"parameter_type" yaml:"parameter_type"`
		Encrypt bool            `bson:"encrypt" json:"encrypt" yaml:"encrypt"`
	}

	// ResponseConfig controls how an action turns an upstream result into a reply.
	ResponseConfig struct {
		Value          string `bson:"value" json:"value" yaml:"value"`
		Dispatch       bool   `bson:"dispatch" json:"dispatch" yaml:"dispatch"`
		EvaluationType string `bson:"evaluation_type" json:"evaluation_type" yaml:"evaluation_type"`
		DispatchType   string `bson:"dispatch_type" json:"dispatch_type" yaml:"dispatch_type"`
	}

	// SetSlot fills a slot from the upstream result after the call.
	SetSlot struct {
		Name           string `bson:"name" json:"name" yaml:"name"`
		Value          string `bson:"value" json:"value" yaml:"value"`
		EvaluationType string `bson:"evaluation_type" json:"evaluation_type" yaml:"evaluation_type"`
	}

	HTTPActionConfig struct {
		Bot           string          `bson:"bot" yaml:"bot"`
		Name          string          `bson:"name" yaml:"name"`
		URL           string          `bson:"http_url" yaml:"http_url"`
		Method        string          `bson:"request_method" yaml:"request_method"`
		ContentType   string          `bson:"content_type" yaml:"content_type"`
		Headers       []ParameterSpec `bson:"headers" yaml:"headers"`
		Params        []ParameterSpec `bson:"params_list" yaml:"params_list"`
		DynamicParams string          `bson:"dynamic_params" yaml:"dynamic_params"`
		Response      ResponseConfig  `bson:"response" yaml:"response"`
		SetSlots      []SetSlot       `bson:"set_slots" yaml:"set_slots"`
		Status        bool            `bson:"status" yaml:"status"`
	}

	DatabaseQuery struct {
		Type      string `bson:"type" yaml:"type"`
		QueryType string `bson:"query_type" yaml:"query_type"`
		Value     any    `bson:"value" yaml:"value"`
	}

	DatabaseActionConfig struct {
		Bot             string          `bson:"bot" yaml:"bot"`
		Name            string          `bson:"name" yaml:"name"`
		Collection      string          `bson:"collection" yaml:"collection"`
		DBType          string          `bson:"db_type" yaml:"db_type"`
		Payload         []DatabaseQuery `bson:"payload" yaml:"payload"`
		Response        ResponseConfig  `bson:"response" yaml:"response"`
		SetSlots        []SetSlot       `bson:"set_slots" yaml:"set_slots"`
		FailureResponse string          `bson:"failure_response" yaml:"failure_response"`
		Status          bool            `bson:"status" yaml:"status"`
	}

	EmailActionConfig struct {
		Bot             string         `bson:"bot" yaml:"bot"`
		Name            string         `bson:"name" yaml:"name"`
		SMTPURL         string         `bson:"smtp_url" yaml:"smtp_url"`
		SMTPPort        int            `bson:"smtp_port" yaml:"smtp_port"`
		SMTPUserID      *ParameterSpec `bson:"smtp_userid" yaml:"smtp_userid"`
		SMTPPassword    ParameterSpec  `bson:"smtp_password" yaml:"smtp_password"`
		FromEmail       ParameterSpec  `bson:"from_email" yaml:"from_email"`
		ToEmail         ParameterSpec  `bson:"to_email" yaml:"to_email"`
		Subject         string         `bson:"subject" yaml:"subject"`
		CustomText      *ParameterSpec `bson:"custom_text" yaml:"custom_text"`
		TLS             bool           `bson:"tls" yaml:"tls"`
		Response        string         `bson:"response" yaml:"response"`
		FailureResponse string         `bson:"failure_response" yaml:"failure_response"`
		Dispatch        bool           `bson:"dispatch_response" yaml:"dispatch_response"`
		Status          bool           `bson:"status" yaml:"status"`
	}

	GoogleSearchConfig struct {
		Bot              string        `bson:"bot" yaml:"bot"`
		Name             string        `bson:"name" yaml:"name"`
		APIKey           ParameterSpec `bson:"api_key" yaml:"api_key"`
		SearchEngineID   string        `bson:"search_engine_id" yaml:"search_engine_id"`
		NumResults       int           `bson:"num_results" yaml:"num_results"`
		FailureResponse  string        `bson:"failure_response" yaml:"failure_response"`
		DispatchResponse bool          `bson:"dispatch_response" yaml:"dispatch_response"`
		SetSlot          string        `bson:"set_slot" yaml:"set_slot"`
		Status           bool          `bson:"status" yaml:"status"`
	}

	WebSearchConfig struct {
		Bot              string `bson:"bot" yaml:"bot"`
		Name             string `bson:"name" yaml:"name"`
		Website          string `bson:"website" yaml:"website"`
		TopN             int    `bson:"topn" yaml:"topn"`
		FailureResponse  string `bson:"failure_response" yaml:"failure_response"`
		DispatchResponse bool   `bson:"dispatch_response" yaml:"dispatch_response"`
		SetSlot          string `bson:"set_slot" yaml:"set_slot"`
		Status           bool   `bson:"status" yaml:"status"`
	}

	JiraConfig struct {
		Bot       string        `bson:"bot" yaml:"bot"`
		Name      string        `bson:"name" yaml:"name"`
		URL       string        `bson:"url" yaml:"url"`
		UserName  string        `bson:"user_name" yaml:"user_name"`
		APIToken  ParameterSpec `bson:"api_token" yaml:"api_token"`
		Project   string        `bson:"project_key" yaml:"project_key"`
		IssueType string        `bson:"issue_type" yaml:"issue_type"`
		ParentKey string        `bson:"parent_key" yaml:"parent_key"`
		Summary   string        `bson:"summary" yaml:"summary"`
		Response  string        `bson:"response" yaml:"response"`
		Status    bool          `bson:"status" yaml:"status"`
	}

	ZendeskConfig struct {
		Bot       string        `bson:"bot" yaml:"bot"`
		Name      string        `bson:"name" yaml:"name"`
		Subdomain string        `bson:"subdomain" yaml:"subdomain"`
		UserName  string        `bson:"user_name" yaml:"user_name"`
		APIToken  ParameterSpec `bson:"api_token" yaml:"api_token"`
		Subject   string        `bson:"subject" yaml:"subject"`
		Response  string        `bson:"response" yaml:"response"`
		Status    bool          `bson:"status" yaml:"status"`
	}

	PipedriveConfig struct {
		Bot      string            `bson:"bot" yaml:"bot"`
		Name     string            `bson:"name" yaml:"name"`
		Domain   string            `bson:"domain" yaml:"domain"`
		APIToken ParameterSpec     `bson:"api_token" yaml:"api_token"`
		Title    string            `bson:"title" yaml:"title"`
		Metadata map[string]string `bson:"metadata" yaml:"metadata"`
		Response string            `bson:"response" yaml:"response"`
		Status   bool              `bson:"status" yaml:"status"`
	}

	HubspotFormsConfig struct {
		Bot      string          `bson:"bot" yaml:"bot"`
		Name     string          `bson:"name" yaml:"name"`
		PortalID string          `bson:"portal_id" yaml:"portal_id"`
		FormGUID string          `bson:"form_guid" yaml:"form_guid"`
		Fields   []ParameterSpec `bson:"fields" yaml:"fields"`
		Response string          `bson:"response" yaml:"response"`
		Status   bool            `bson:"status" yaml:"status"`
	}

	RazorpayConfig struct {
		Bot       string          `bson:"bot" yaml:"bot"`
		Name      string          `bson:"name" yaml:"name"`
		APIKey    ParameterSpec   `bson:"api_key" yaml:"api_key"`
		APISecret ParameterSpec   `bson:"api_secret" yaml:"api_secret"`
		Amount    ParameterSpec   `bson:"amount" yaml:"amount"`
		Currency  ParameterSpec   `bson:"currency" yaml:"currency"`
		Username  *ParameterSpec  `bson:"username" yaml:"username"`
		Email     *ParameterSpec  `bson:"email" yaml:"email"`
		Contact   *ParameterSpec  `bson:"contact" yaml:"contact"`
		Notes     []ParameterSpec `bson:"notes" yaml:"notes"`
		Status    bool            `bson:"status" yaml:"status"`
	}

	SlotSetRule struct {
		Name  string `bson:"name" yaml:"name"`
		Type  string `bson:"type" yaml:"type"`
		Value any    `bson:"value" yaml:"value"`
	}

	SlotSetConfig struct {
		Bot      string        `bson:"bot" yaml:"bot"`
		Name     string        `bson:"name" yaml:"name"`
		SetSlots []SlotSetRule `bson:"set_slots" yaml:"set_slots"`
		Status   bool          `bson:"status" yaml:"status"`
	}

	// SlotValueSource fetches or maps a slot value: custom literal, another
	// slot, or the slots returned by another action.
	SlotValueSource struct {
		Type  string `bson:"type" yaml:"type"`
		Value any    `bson:"value" yaml:"value"`
	}

	FormValidationConfig struct {
		Bot                string           `bson:"bot" yaml:"bot"`
		Name               string           `bson:"name" yaml:"name"`
		SlotName           string           `bson:"slot" yaml:"slot"`
		ValidationSemantic string           `bson:"validation_semantic" yaml:"validation_semantic"`
		IsRequired         bool             `bson:"is_required" yaml:"is_required"`
		ValidResponse      string           `bson:"valid_response" yaml:"valid_response"`
		InvalidResponse    string           `bson:"invalid_response" yaml:"invalid_response"`
		PreValidation      *SlotValueSource `bson:"pre_validation" yaml:"pre_validation"`
		SlotSet            *SlotValueSource `bson:"slot_set" yaml:"slot_set"`
		Status             bool             `bson:"status" yaml:"status"`
	}

	PyscriptConfig struct {
		Bot              string `bson:"bot" yaml:"bot"`
		Name             string `bson:"name" yaml:"name"`
		SourceCode       string `bson:"source_code" yaml:"source_code"`
		DispatchResponse bool   `bson:"dispatch_response" yaml:"dispatch_response"`
		Status           bool   `bson:"status" yaml:"status"`
	}

	LLMHyperparameters struct {
		Model       string  `bson:"model" yaml:"model"`
		Temperature float32 `bson:"temperature" yaml:"temperature"`
		MaxTokens   int     `bson:"max_tokens" yaml:"max_tokens"`
		TopP        float32 `bson:"top_p" yaml:"top_p"`
	}

	// SimilarityConfig tunes bot_content retrieval.
	SimilarityConfig struct {
		TopResults          int     `bson:"top_results" yaml:"top_results"`
		SimilarityThreshold float64 `bson:"similarity_threshold" yaml:"similarity_threshold"`
	}

	// CrudConfig queries a configured collection for prompt context.
	CrudConfig struct {
		Collections []string `bson:"collections" yaml:"collections"`
		QuerySource string   `bson:"query_source" yaml:"query_source"`
		Query       any      `bson:"query" yaml:"query"`
		ResultLimit int      `bson:"result_limit" yaml:"result_limit"`
	}

	LLMPrompt struct {
		Name            string            `bson:"name" yaml:"name"`
		Type            string            `bson:"type" yaml:"type"`
		Source          string            `bson:"source" yaml:"source"`
		Data            string            `bson:"data" yaml:"data"`
		Instructions    string            `bson:"instructions" yaml:"instructions"`
		IsEnabled       bool              `bson:"is_enabled" yaml:"is_enabled"`
		Similarity      *SimilarityConfig `bson:"hyperparameters" yaml:"hyperparameters"`
		Crud            *CrudConfig       `bson:"crud_config" yaml:"crud_config"`
		NumHistoryTurns int               `bson:"num_history_turns" yaml:"num_history_turns"`
	}

	UserQuestion struct {
		Type  string `bson:"type" yaml:"type"`
		Value string `bson:"value" yaml:"value"`
	}

	PromptConfig struct {
		Bot              string             `bson:"bot" yaml:"bot"`
		Name             string             `bson:"name" yaml:"name"`
		LLMType          string             `bson:"llm_type" yaml:"llm_type"`
		Hyperparameters  LLMHyperparameters `bson:"hyperparameters" yaml:"hyperparameters"`
		UserQuestion     UserQuestion       `bson:"user_question" yaml:"user_question"`
		Prompts          []LLMPrompt        `bson:"llm_prompts" yaml:"llm_prompts"`
		NumBotResponses  int                `bson:"num_bot_responses" yaml:"num_bot_responses"`
		FailureMessage   string             `bson:"failure_message" yaml:"failure_message"`
		SetSlots         []SetSlot          `bson:"set_slots" yaml:"set_slots"`
		DispatchResponse bool               `bson:"dispatch_response" yaml:"dispatch_response"`
		Status           bool               `bson:"status" yaml:"status"`
	}

	ScheduleConfig struct {
		Bot                 string          `bson:"bot" yaml:"bot"`
		Name                string          `bson:"name" yaml:"name"`
		ScheduleTime        ParameterSpec   `bson:"schedule_time" yaml:"schedule_time"`
		Timezone            string          `bson:"timezone" yaml:"timezone"`
		ScheduleActionType  string          `bson:"schedule_action_type" yaml:"schedule_action_type"`
		SourceCode          string          `bson:"source_code" yaml:"source_code"`
		FlowName            string          `bson:"flow_name" yaml:"flow_name"`
		ParamsList          []ParameterSpec `bson:"params_list" yaml:"params_list"`
		Response            string          `bson:"response" yaml:"response"`
		DispatchBotResponse bool            `bson:"dispatch_bot_response" yaml:"dispatch_bot_response"`
		Status              bool            `bson:"status" yaml:"status"`
	}

	ParallelConfig struct {
		Bot                  string   `bson:"bot" yaml:"bot"`
		Name                 string   `bson:"name" yaml:"name"`
		Actions              []string `bson:"actions" yaml:"actions"`
		DispatchResponseText bool     `bson:"dispatch_response_text" yaml:"dispatch_response_text"`
		ResponseText         string   `bson:"response_text" yaml:"response_text"`
		CancelPolicy         string   `bson:"cancel_policy" yaml:"cancel_policy"`
		Status               bool     `bson:"status" yaml:"status"`
	}

	CallbackActionConfig struct {
		Bot                 string          `bson:"bot" yaml:"bot"`
		Name                string          `bson:"name" yaml:"name"`
		CallbackName        string          `bson:"callback_name" yaml:"callback_name"`
		DynamicURLSlotName  string          `bson:"dynamic_url_slot_name" yaml:"dynamic_url_slot_name"`
		MetadataList        []ParameterSpec `bson:"metadata_list" yaml:"metadata_list"`
		BotResponse         string          `bson:"bot_response" yaml:"bot_response"`
		DispatchBotResponse bool            `bson:"dispatch_bot_response" yaml:"dispatch_bot_response"`
		Status              bool            `bson:"status" yaml:"status"`
	}

	// CallbackConfig holds the script run when a callback URL is hit.
	CallbackConfig struct {
		Bot          string `bson:"bot" yaml:"bot"`
		Name         string `bson:"name" yaml:"name"`
		PyscriptCode string `bson:"pyscript_code" yaml:"pyscript_code"`
		ExpireIn     int64  `bson:"expire_in" yaml:"expire_in"`
		Status       bool   `bson:"status" yaml:"status"`
	}

	FlowConfig struct {
		Bot            string        `bson:"bot" yaml:"bot"`
		Name           string        `bson:"name" yaml:"name"`
		FlowID         ParameterSpec `bson:"flow_id" yaml:"flow_id"`
		RecipientPhone ParameterSpec `bson:"recipient_phone" yaml:"recipient_phone"`
		Header         string        `bson:"header" yaml:"header"`
		Body           string        `bson:"body" yaml:"body"`
		Footer         string        `bson:"footer" yaml:"footer"`
		Mode           string        `bson:"mode" yaml:"mode"`
		FlowAction     string        `bson:"flow_action" yaml:"flow_action"`
		FlowToken      string        `bson:"flow_token" yaml:"flow_token"`
		FlowCTA        string        `bson:"flow_cta" yaml:"flow_cta"`
		InitialScreen  string        `bson:"initial_screen" yaml:"initial_screen"`
		Response       string        `bson:"response" yaml:"response"`
		Status         bool          `bson:"status" yaml:"status"`
	}

	TriggerRule struct {
		Text    string `bson:"text" yaml:"text"`
		Payload string `bson:"payload" yaml:"payload"`
		Message string `bson:"message" yaml:"message"`
	}

	TextRecommendations struct {
		Count            int  `bson:"count" yaml:"count"`
		UseIntentRanking bool `bson:"use_intent_ranking" yaml:"use_intent_ranking"`
	}

	TwoStageFallbackConfig struct {
		Bot                 string               `bson:"bot" yaml:"bot"`
		Name                string               `bson:"name" yaml:"name"`
		TextRecommendations *TextRecommendations `bson:"text_recommendations" yaml:"text_recommendations"`
		TriggerRules        []TriggerRule        `bson:"trigger_rules" yaml:"trigger_rules"`
		FallbackMessage     string               `bson:"fallback_message" yaml:"fallback_message"`
		Status              bool                 `bson:"status" yaml:"status"`
	}

	// CollectionData is a bot-owned structured record queried by crud prompts.
	CollectionData struct {
		Bot            string         `bson:"bot" yaml:"bot"`
		CollectionName string         `bson:"collection_name" yaml:"collection_name"`
		Data           map[string]any `bson:"data" yaml:"data"`
		Status         bool           `bson:"status" yaml:"status"`
	}

	TrainingExample struct {
		Bot    string `bson:"bot" yaml:"bot"`
		Intent string `bson:"intent" yaml:"intent"`
		Text   string `bson:"text" yaml:"text"`
		Status bool   `bson:"status" yaml:"status"`
	}

	MailChannelConfig struct {
		Bot              string   `bson:"bot" yaml:"bot"`
		EmailAccount     string   `bson:"email_account" yaml:"email_account"`
		EmailPassword    string   `bson:"email_password" yaml:"email_password"`
		IMAPServer       string   `bson:"imap_server" yaml:"imap_server"`
		IMAPPort         int      `bson:"imap_port" yaml:"imap_port"`
		SMTPServer       string   `bson:"smtp_server" yaml:"smtp_server"`
		SMTPPort         int      `bson:"smtp_port" yaml:"smtp_port"`
		Interval         int      `bson:"interval" yaml:"interval"`
		Intent           string   `bson:"intent" yaml:"intent"`
		Subjects         []string `bson:"subjects" yaml:"subjects"`
		IgnoreSubjects   []string `bson:"ignore_subjects" yaml:"ignore_subjects"`
		FromEmails       []string `bson:"from_emails" yaml:"from_emails"`
		IgnoreFromEmails []string `bson:"ignore_from_emails" yaml:"ignore_from_emails"`
		SeenStatus       string   `bson:"seen_status" yaml:"seen_status"`
		ReplyTemplate    string   `bson:"reply_template" yaml:"reply_template"`
		Status           bool     `bson:"status" yaml:"status"`
	}

	CallbackData struct {
		Bot         string         `bson:"bot"`
		ActionName  string         `bson:"action_name"`
		Callback    string         `bson:"callback_name"`
		Identifier  string         `bson:"identifier"`
		SenderID    string         `bson:"sender_id"`
		CallbackURL string         `bson:"callback_url"`
		Metadata    map[string]any `bson:"metadata"`
		IsValid     bool           `bson:"is_valid"`
		ExpiresAt   *time.Time     `bson:"expires_at,omitempty"`
		Timestamp   time.Time      `bson:"timestamp"`
	}

	CallbackLog struct {
		Bot        string         `bson:"bot"`
		Identifier string         `bson:"identifier"`
		Callback   string         `bson:"callback_name"`
		Request    map[string]any `bson:"request"`
		Response   any            `bson:"response"`
		Status     Status         `bson:"status"`
		Exception  string         `bson:"exception,omitempty"`
		Timestamp  time.Time      `bson:"timestamp"`
	}
)
