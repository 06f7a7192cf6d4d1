package types

// Alert is the message posted to the webhook, serialised as {"text": ...}.
// Source names the monitor that raised it and stays out of the payload.
type Alert struct {
	Text   string `json:"text"`
	Source string `json:"-"`
}
