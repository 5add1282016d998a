package mpesa

import (
	"encoding/base64"
	"fmt"
	"math"
)

const timestampLayout = "20060102150405"

// STKPushRequest is the signed payload the Daraja STK push endpoint expects.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// BuildSTKPush packages an order amount and phone number into a push request.
// The timestamp is taken at build time since the gateway checks freshness,
// and the amount is rounded to the nearest whole shilling: Daraja takes
// integer amounts only, so cents are lost here.
func (c *Client) BuildSTKPush(amount float64, phone string) (*STKPushRequest, error) {
	msisdn, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))

	return &STKPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int64(math.Round(amount)),
		PartyA:            msisdn,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  c.cfg.AccountRef,
		TransactionDesc:   "CDJ order payment",
	}, nil
}

// NormalizePhone converts a Kenyan subscriber number to the 2547XXXXXXXX /
// 2541XXXXXXXX form the gateway requires. Numbers already in international
// form pass through unchanged.
func NormalizePhone(phone string) (string, error) {
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
		}
	}

	switch {
	case len(phone) == 12 && phone[:3] == "254":
		return phone, nil
	case len(phone) == 10 && (phone[:2] == "07" || phone[:2] == "01"):
		return "254" + phone[1:], nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
}
