package nsi

import "fmt"

// StpURN renders the URN form of an outbound STP+VLAN reference:
// urn:ogf:network:<stpId>?vlan=<vlan>.
func StpURN(stpID string, vlanID int) string {
	return fmt.Sprintf("urn:ogf:network:%s?vlan=%d", stpID, vlanID)
}
