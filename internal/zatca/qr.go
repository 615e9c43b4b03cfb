// Package zatca builds the e-invoice QR payload required on Saudi tax invoices.
//
// The payload is a sequence of TLV records (1 byte tag, 1 byte length, value)
// base64 encoded with the standard alphabet.
package zatca

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tag identifies a TLV record.
type Tag byte

const (
	TagSellerName   Tag = 1
	TagVATNumber    Tag = 2
	TagTimestamp    Tag = 3
	TagInvoiceTotal Tag = 4
	TagVATTotal     Tag = 5
)

// TimestampLayout is the ISO-8601 form used in tag 3.
const TimestampLayout = "2006-01-02T15:04:05Z"

const maxValueLen = 255

var (
	// ErrIncompleteSeller means the seller name or VAT number is blank.
	ErrIncompleteSeller = errors.New("zatca: seller name and vat number are required")
	// ErrValueTooLong means a value does not fit the one byte length field.
	ErrValueTooLong = errors.New("zatca: tlv value exceeds 255 bytes")
	// ErrMalformedPayload is returned by DecodeQR.
	ErrMalformedPayload = errors.New("zatca: malformed qr payload")
)

// Fields are the five values encoded into the QR payload.
type Fields struct {
	SellerName   string
	VATNumber    string
	Timestamp    string
	InvoiceTotal string
	VATTotal     string
}

// Record is one decoded TLV record.
type Record struct {
	Tag   Tag
	Value string
}

// FieldsFor formats amounts and the issue instant the way tags 3 to 5 expect.
// Credit notes pass their signed total.
func FieldsFor(sellerName, vatNumber string, issuedAt time.Time, total, vat decimal.Decimal) Fields {
	return Fields{
		SellerName:   sellerName,
		VATNumber:    vatNumber,
		Timestamp:    issuedAt.UTC().Format(TimestampLayout),
		InvoiceTotal: total.StringFixed(2),
		VATTotal:     vat.StringFixed(2),
	}
}

// BuildQR encodes f into the base64 TLV payload. Values are written byte for
// byte as given. It never returns a partial payload: any failure yields an
// empty string and an error.
func BuildQR(f Fields) (string, error) {
	if strings.TrimSpace(f.SellerName) == "" || strings.TrimSpace(f.VATNumber) == "" {
		return "", ErrIncompleteSeller
	}

	values := [...]struct {
		tag   Tag
		value string
	}{
		{TagSellerName, f.SellerName},
		{TagVATNumber, f.VATNumber},
		{TagTimestamp, f.Timestamp},
		{TagInvoiceTotal, f.InvoiceTotal},
		{TagVATTotal, f.VATTotal},
	}

	var buf []byte
	for _, v := range values {
		b := []byte(v.value)
		if len(b) > maxValueLen {
			return "", fmt.Errorf("%w: tag %d is %d bytes", ErrValueTooLong, v.tag, len(b))
		}
		buf = append(buf, byte(v.tag), byte(len(b)))
		buf = append(buf, b...)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// DecodeQR parses a payload produced by BuildQR.
func DecodeQR(payload string) ([]Record, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var records []Record
	for i := 0; i < len(raw); {
		if i+2 > len(raw) {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrMalformedPayload, i)
		}
		tag, length := Tag(raw[i]), int(raw[i+1])
		i += 2
		if i+length > len(raw) {
			return nil, fmt.Errorf("%w: tag %d overruns payload", ErrMalformedPayload, tag)
		}
		records = append(records, Record{Tag: tag, Value: string(raw[i : i+length])})
		i += length
	}
	return records, nil
}

// Lookup returns the value of tag within records.
func Lookup(records []Record, tag Tag) (string, bool) {
	for _, r := range records {
		if r.Tag == tag {
			return r.Value, true
		}
	}
	return "", false
}

func (t Tag) String() string {
	switch t {
	case TagSellerName:
		return "seller_name"
	case TagVATNumber:
		return "vat_number"
	case TagTimestamp:
		return "timestamp"
	case TagInvoiceTotal:
		return "invoice_total"
	case TagVATTotal:
		return "vat_total"
	default:
		return fmt.Sprintf("tag_%d", byte(t))
	}
}
