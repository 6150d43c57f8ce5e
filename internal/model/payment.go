package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MethodType identifies how a payment was made.
type MethodType string

const (
	MethodCash         MethodType = "Cash"
	MethodBankTransfer MethodType = "Bank Transfer"
	MethodCreditCard   MethodType = "Credit Card"
	MethodWallet       MethodType = "Wallet"
	MethodCrypto       MethodType = "Crypto"
)

// BankTransferDetails are recorded for bank transfers.
type BankTransferDetails struct {
	BankName  string `json:"bank_name"`
	Reference string `json:"reference"`
}

// CardDetails are recorded for card payments. Only the last four digits of
// the card number are ever kept.
type CardDetails struct {
	CardType      string  `json:"card_type"`
	Last4         string  `json:"last4"`
	Authorization *string `json:"authorization_code,omitempty"`
}

// WalletDetails are recorded for mobile wallet payments.
type WalletDetails struct {
	Provider string  `json:"provider"`
	Account  *string `json:"account,omitempty"`
}

// CryptoDetails are recorded for cryptocurrency payments.
type CryptoDetails struct {
	Currency string  `json:"currency"`
	Network  *string `json:"network,omitempty"`
	TxHash   string  `json:"tx_hash"`
}

// PaymentMethod is a tagged variant: Type selects which detail pointer is
// populated. Cash carries no details.
type PaymentMethod struct {
	Type         MethodType           `json:"method_type"`
	BankTransfer *BankTransferDetails `json:"bank_transfer,omitempty"`
	Card         *CardDetails         `json:"credit_card,omitempty"`
	Wallet       *WalletDetails       `json:"wallet,omitempty"`
	Crypto       *CryptoDetails       `json:"crypto,omitempty"`
}

var ErrUnknownMethod = errors.New("unknown method_type")

// Validate checks that the populated details match the method type and that
// the required fields of that variant are present.
func (m PaymentMethod) Validate() error {
	set := 0
	for _, p := range []bool{m.BankTransfer != nil, m.Card != nil, m.Wallet != nil, m.Crypto != nil} {
		if p {
			set++
		}
	}
	switch m.Type {
	case MethodCash:
		if set != 0 {
			return fmt.Errorf("cash payments carry no method details")
		}
		return nil
	case MethodBankTransfer:
		if set != 1 || m.BankTransfer == nil || strings.TrimSpace(m.BankTransfer.Reference) == "" {
			return fmt.Errorf("bank transfer requires bank_transfer.reference")
		}
	case MethodCreditCard:
		if set != 1 || m.Card == nil || len(m.Card.Last4) != 4 || !digits(m.Card.Last4) {
			return fmt.Errorf("credit card requires credit_card.last4 with four digits")
		}
	case MethodWallet:
		if set != 1 || m.Wallet == nil || strings.TrimSpace(m.Wallet.Provider) == "" {
			return fmt.Errorf("wallet requires wallet.provider")
		}
	case MethodCrypto:
		if set != 1 || m.Crypto == nil || strings.TrimSpace(m.Crypto.Currency) == "" || strings.TrimSpace(m.Crypto.TxHash) == "" {
			return fmt.Errorf("crypto requires crypto.currency and crypto.tx_hash")
		}
	default:
		return ErrUnknownMethod
	}
	return nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DetailsJSON returns the populated variant for storage, or nil for cash.
func (m PaymentMethod) DetailsJSON() ([]byte, error) {
	var v any
	switch m.Type {
	case MethodBankTransfer:
		v = m.BankTransfer
	case MethodCreditCard:
		v = m.Card
	case MethodWallet:
		v = m.Wallet
	case MethodCrypto:
		v = m.Crypto
	default:
		return nil, nil
	}
	return json.Marshal(v)
}

// DecodePaymentMethod rebuilds the variant from its stored columns.
func DecodePaymentMethod(t MethodType, details []byte) (PaymentMethod, error) {
	m := PaymentMethod{Type: t}
	if len(details) == 0 || string(details) == "null" {
		return m, nil
	}
	var err error
	switch t {
	case MethodBankTransfer:
		m.BankTransfer = new(BankTransferDetails)
		err = json.Unmarshal(details, m.BankTransfer)
	case MethodCreditCard:
		m.Card = new(CardDetails)
		err = json.Unmarshal(details, m.Card)
	case MethodWallet:
		m.Wallet = new(WalletDetails)
		err = json.Unmarshal(details, m.Wallet)
	case MethodCrypto:
		m.Crypto = new(CryptoDetails)
		err = json.Unmarshal(details, m.Crypto)
	}
	return m, err
}

// Payment settles part or all of an invoice.
type Payment struct {
	ID          uint64          `json:"id"`
	InvoiceID   uint64          `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate Date            `json:"payment_date"`
	Method      PaymentMethod   `json:"method"`
	Notes       *string         `json:"notes"`
	RecordedBy  *uint64         `json:"recorded_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Amounts extracts the payment amounts.
func Amounts(ps []Payment) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Amount)
	}
	return out
}
