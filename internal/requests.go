package internal

type TriggerRequest struct {
	Event       string `json:"event"`
	RecipientId string `json:"recipientId"`
}

type MappingEntryRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type RecipientRequest struct {
	Id     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

type RunCampaignRequest struct {
	Body       string                `json:"body"`
	Channel    string                `json:"channel"`
	Mapping    []MappingEntryRequest `json:"mapping"`
	Recipients []RecipientRequest    `json:"recipients"`
}
