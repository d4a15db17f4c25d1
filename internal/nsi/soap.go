package nsi

import "fmt"

// parseSyncReply flattens a sync SOAP response and, if it carries a
// <Fault>, returns ErrSOAPFault instead of the flattened body.
func parseSyncReply(body []byte) (map[string]any, error) {
	flat, err := Flatten(body)
	if err != nil {
		return nil, err
	}

	if fault := findKey(flat, "Fault"); fault != nil {
		m, _ := fault.(map[string]any)
		return nil, &ErrSOAPFault{
			NSAID:   asString(findKey(m, "nsaId")),
			ErrorID: asString(findKey(m, "errorId")),
			Text:    asString(findKey(m, "text")),
		}
	}

	soapBody := findKey(flat, "Body")
	if soapBody == nil {
		return nil, fmt.Errorf("nsi: sync reply has no SOAP Body")
	}
	m, ok := soapBody.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("nsi: sync reply Body is not an element")
	}
	return m, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
