package domain

import (
	"encoding/json"
	"fmt"
)

// ContractStatus gates which operation classes are permitted.
type ContractStatus uint8

const (
	StatusNormalRun ContractStatus = iota
	StatusStopAllButRedeems
	StatusStopAll
)

var contractStatusNames = map[ContractStatus]string{
	StatusNormalRun:         "normal_run",
	StatusStopAllButRedeems: "stop_all_but_redeems",
	StatusStopAll:           "stop_all",
}

// String returns the wire name of the status.
func (s ContractStatus) String() string {
	if name, ok := contractStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("contract_status(%d)", uint8(s))
}

// IsValid checks if the status is a known value.
func (s ContractStatus) IsValid() bool {
	_, ok := contractStatusNames[s]
	return ok
}

// ParseContractStatus parses a wire name.
func ParseContractStatus(name string) (ContractStatus, error) {
	for s, n := range contractStatusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown contract status %q", name)
}

// MarshalJSON implements json.Marshaler.
func (s ContractStatus) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid contract status %d", uint8(s))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ContractStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseContractStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
