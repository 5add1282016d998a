package mpesa

// CallbackEnvelope is the settlement notification Daraja posts once the
// customer has approved or denied the push.
type CallbackEnvelope struct {
	Body struct {
		StkCallback CallbackData `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackData carries the final verdict. ResultCode 0 means the customer
// approved and the money moved; anything else is a failure (cancelled,
// timed out, insufficient funds).
type CallbackData struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []CallbackItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

func (d CallbackData) Succeeded() bool {
	return d.ResultCode == 0
}

// ReceiptNumber digs the M-Pesa receipt out of the callback metadata.
// Present only on successful settlements.
func (d CallbackData) ReceiptNumber() string {
	for _, item := range d.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}
