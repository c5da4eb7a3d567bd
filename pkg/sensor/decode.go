package sensor

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// DecodeJSON reads a JSON batch.
func DecodeJSON(r io.Reader) (Batch, error) {
	var b Batch
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return b, nil
}

type xmlBatch struct {
	XMLName   xml.Name    `xml:"sensor_data"`
	DeviceID  string      `xml:"device_id"`
	Location  string      `xml:"location"`
	Timestamp string      `xml:"timestamp"`
	Sensors   []xmlSensor `xml:"sensors>sensor"`
}

type xmlSensor struct {
	Type       string `xml:"type"`
	Value      string `xml:"value"`
	Unit       string `xml:"unit"`
	ObjectName string `xml:"object_name"`
}

// DecodeXML reads the <sensor_data> document that legacy XML producers emit.
//
//	<sensor_data>
//	  <device_id>dust_cleaner</device_id>
//	  <location>mobile</location>
//	  <sensors><sensor><type>distance</type><value>42</value><unit>cm</unit></sensor></sensors>
//	</sensor_data>
func DecodeXML(r io.Reader) (Batch, error) {
	var doc xmlBatch
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	b := Batch{
		DeviceID: strings.TrimSpace(doc.DeviceID),
		Location: strings.TrimSpace(doc.Location),
		Readings: make([]Reading, 0, len(doc.Sensors)),
	}
	if ts := strings.TrimSpace(doc.Timestamp); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			b.Timestamp = t
		} else if t, err := time.Parse("2006-01-02T15:04:05.999999", ts); err == nil {
			b.Timestamp = t.UTC()
		}
	}
	for _, s := range doc.Sensors {
		var kind Kind
		_ = kind.UnmarshalText([]byte(s.Type))
		b.Readings = append(b.Readings, Reading{
			Kind:       kind,
			Value:      ParseValue(s.Value),
			Unit:       strings.TrimSpace(s.Unit),
			ObjectName: strings.TrimSpace(s.ObjectName),
		})
	}
	return b, nil
}
