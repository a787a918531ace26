// Package billingpb carries the messages and service wiring for
// proto/billing.proto.
package billingpb

import (
	"google.golang.org/protobuf/encoding/protowire"

	"pulsetrack/shared/genproto/wirefmt"
)

type BillingRequest struct {
	PatientId string
	Name      string
	Email     string
}

func (m *BillingRequest) GetPatientId() string {
	if m != nil {
		return m.PatientId
	}
	return ""
}

func (m *BillingRequest) GetName() string {
	if m != nil {
		return m.Name
	}
	return ""
}

func (m *BillingRequest) GetEmail() string {
	if m != nil {
		return m.Email
	}
	return ""
}

func (m *BillingRequest) MarshalBinary() ([]byte, error) {
	var b []byte
	b = wirefmt.AppendString(b, 1, m.PatientId)
	b = wirefmt.AppendString(b, 2, m.Name)
	b = wirefmt.AppendString(b, 3, m.Email)
	return b, nil
}

func (m *BillingRequest) UnmarshalBinary(data []byte) error {
	*m = BillingRequest{}
	return wirefmt.Walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return wirefmt.String(typ, b, &m.PatientId)
		case 2:
			return wirefmt.String(typ, b, &m.Name)
		case 3:
			return wirefmt.String(typ, b, &m.Email)
		}
		return 0, nil
	})
}

type BillingResponse struct {
	AccountId string
	Status    string
}

func (m *BillingResponse) GetAccountId() string {
	if m != nil {
		return m.AccountId
	}
	return ""
}

func (m *BillingResponse) GetStatus() string {
	if m != nil {
		return m.Status
	}
	return ""
}

func (m *BillingResponse) MarshalBinary() ([]byte, error) {
	var b []byte
	b = wirefmt.AppendString(b, 1, m.AccountId)
	b = wirefmt.AppendString(b, 2, m.Status)
	return b, nil
}

func (m *BillingResponse) UnmarshalBinary(data []byte) error {
	*m = BillingResponse{}
	return wirefmt.Walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return wirefmt.String(typ, b, &m.AccountId)
		case 2:
			return wirefmt.String(typ, b, &m.Status)
		}
		return 0, nil
	})
}
