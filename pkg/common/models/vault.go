package models

// TokenUse names a token issued during an anonymize call.
type TokenUse struct {
	Token    string `json:"token"`
	Category string `json:"category"`
}

type AnonymizeRequest struct {
	Text       string   `json:"text"`
	Categories []string `json:"categories,omitempty"`
	Exclusions []string `json:"exclusions,omitempty"`
}

type AnonymizeResponse struct {
	AnonymizedText string            `json:"anonymized_text"`
	TokensUsed     []TokenUse        `json:"tokens_used"`
	Mapping        map[string]string `json:"mapping,omitempty"`
}

type DeanonymizeRequest struct {
	Text    string            `json:"text"`
	Mapping map[string]string `json:"mapping,omitempty"`
}

type DeanonymizeResponse struct {
	Text       string `json:"text"`
	Resolved   int    `json:"resolved"`
	Unresolved int    `json:"unresolved"`
}

type PromptRequest struct {
	Prompt     string   `json:"prompt"`
	Categories []string `json:"categories,omitempty"`
}

type PromptResponse struct {
	Response         string     `json:"response"`
	AnonymizedPrompt string     `json:"anonymized_prompt"`
	TokensUsed       []TokenUse `json:"tokens_used"`
	Unresolved       int        `json:"unresolved"`
}

type CedulaRequest struct {
	Cedula string `json:"cedula"`
}

type CedulaTokenRequest struct {
	Token string `json:"token"`
}

type CedulaResponse struct {
	Status string `json:"status"`
	Cedula string `json:"cedula,omitempty"`
	Token  string `json:"token,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	HTTP          string `json:"http"`
	DB            string `json:"db"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type CedulaGuidanceResponse struct {
	Guidance string      `json:"guidance"`
	Masked   interface{} `json:"masked"`
}
