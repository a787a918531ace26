// Package patienteventpb carries the PatientEvent message from
// proto/patient_event.proto.
package patienteventpb

import (
	"google.golang.org/protobuf/encoding/protowire"

	"pulsetrack/shared/genproto/wirefmt"
)

const EventTypeCreated = "CREATED"

type PatientEvent struct {
	PatientId  string
	Name       string
	Email      string
	EventType  string
	EventId    string
	OccurredAt int64
}

func (m *PatientEvent) MarshalBinary() ([]byte, error) {
	return Marshal(m), nil
}

func (m *PatientEvent) UnmarshalBinary(data []byte) error {
	return Unmarshal(data, m)
}

func Marshal(m *PatientEvent) []byte {
	var b []byte
	b = wirefmt.AppendString(b, 1, m.PatientId)
	b = wirefmt.AppendString(b, 2, m.Name)
	b = wirefmt.AppendString(b, 3, m.Email)
	b = wirefmt.AppendString(b, 4, m.EventType)
	b = wirefmt.AppendString(b, 5, m.EventId)
	b = wirefmt.AppendInt64(b, 6, m.OccurredAt)
	return b
}

// Unmarshal fails with an error wrapping ErrProtocolDecode on malformed
// input. Fields it does not know are skipped.
func Unmarshal(data []byte, m *PatientEvent) error {
	*m = PatientEvent{}
	return wirefmt.Walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return wirefmt.String(typ, b, &m.PatientId)
		case 2:
			return wirefmt.String(typ, b, &m.Name)
		case 3:
			return wirefmt.String(typ, b, &m.Email)
		case 4:
			return wirefmt.String(typ, b, &m.EventType)
		case 5:
			return wirefmt.String(typ, b, &m.EventId)
		case 6:
			return wirefmt.Int64(typ, b, &m.OccurredAt)
		}
		return 0, nil
	})
}
