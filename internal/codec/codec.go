// Package codec is the single place backend wire integers are translated to
// and from the canonical client enums. The backend uses different zero
// points for different status families (decommissioning reviews encode
// accepted=0 while everything else puts pending first), so every mapping is
// an explicit table; nothing outside this package compares raw integers.
package codec

import (
	"fmt"
	"log"

	"assetline/internal/domain"
	"assetline/internal/fault"
)

// UnknownEncodingError reports a wire integer outside the documented range
// for its field.
type UnknownEncodingError struct {
	Field string
	Raw   int
}

func (e *UnknownEncodingError) Error() string {
	return fmt.Sprintf("unknown %s encoding %d", e.Field, e.Raw)
}

func (e *UnknownEncodingError) Kind() fault.Kind { return fault.KindUnknownEncoding }

var operationalStates = map[int]domain.OperationalState{
	0: domain.StateUnderRevision,
	1: domain.StateRevised,
	2: domain.StateOperational,
	3: domain.StateUnderMaintenance,
	4: domain.StateDecommissioned,
	5: domain.StateBeingTransferred,
}

var inspectionStatuses = map[int]domain.InspectionStatus{
	0: domain.InspectionPending,
	1: domain.InspectionApproved,
	2: domain.InspectionRejected,
}

// Decommissioning reviews are the odd one out on the wire: accepted=0.
var decommissioningStatuses = map[int]domain.DecommissioningStatus{
	0: domain.DecommissioningAccepted,
	1: domain.DecommissioningRejected,
	2: domain.DecommissioningPending,
}

var deviceTypes = map[int]domain.DeviceType{
	0: domain.DeviceComputer,
	1: domain.DevicePrinter,
	2: domain.DeviceScanner,
	3: domain.DeviceNetwork,
	4: domain.DevicePeripheral,
	5: domain.DeviceOther,
}

var maintenanceTypes = map[int]domain.MaintenanceType{
	0: domain.MaintenancePreventive,
	1: domain.MaintenanceCorrective,
}

var decommissionReasons = map[int]domain.DecommissionReason{
	0: domain.ReasonObsolete,
	1: domain.ReasonBeyondRepair,
	2: domain.ReasonLost,
	3: domain.ReasonEndOfLease,
	4: domain.ReasonOther,
}

var (
	operationalStateCodes      = invert(operationalStates)
	inspectionStatusCodes      = invert(inspectionStatuses)
	decommissioningStatusCodes = invert(decommissioningStatuses)
	deviceTypeCodes            = invert(deviceTypes)
	maintenanceTypeCodes       = invert(maintenanceTypes)
	decommissionReasonCodes    = invert(decommissionReasons)
)

func invert[T comparable](table map[int]T) map[T]int {
	out := make(map[T]int, len(table))
	for raw, v := range table {
		out[v] = raw
	}
	return out
}

func DecodeOperationalState(raw int) (domain.OperationalState, error) {
	s, ok := operationalStates[raw]
	if !ok {
		return "", &UnknownEncodingError{Field: "operational_state", Raw: raw}
	}
	return s, nil
}

func DecodeInspectionStatus(raw int) (domain.InspectionStatus, error) {
	s, ok := inspectionStatuses[raw]
	if !ok {
		return "", &UnknownEncodingError{Field: "inspection_status", Raw: raw}
	}
	return s, nil
}

func DecodeDecommissioningStatus(raw int) (domain.DecommissioningStatus, error) {
	s, ok := decommissioningStatuses[raw]
	if !ok {
		return "", &UnknownEncodingError{Field: "decommissioning_status", Raw: raw}
	}
	return s, nil
}

func DecodeDeviceType(raw int) (domain.DeviceType, error) {
	t, ok := deviceTypes[raw]
	if !ok {
		return "", &UnknownEncodingError{Field: "device_type", Raw: raw}
	}
	return t, nil
}

func DecodeMaintenanceType(raw int) (domain.MaintenanceType, error) {
	t, ok := maintenanceTypes[raw]
	if !ok {
		return "", &UnknownEncodingError{Field: "maintenance_type", Raw: raw}
	}
	return t, nil
}

func DecodeDecommissionReason(raw int) (domain.DecommissionReason, error) {
	r, ok := decommissionReasons[raw]
	if !ok {
		return "", &UnknownEncodingError{Field: "decommission_reason", Raw: raw}
	}
	return r, nil
}

func EncodeOperationalState(s domain.OperationalState) (int, error) {
	raw, ok := operationalStateCodes[s]
	if !ok {
		return 0, fmt.Errorf("unencodable operational state %q", s)
	}
	return raw, nil
}

func EncodeInspectionStatus(s domain.InspectionStatus) (int, error) {
	raw, ok := inspectionStatusCodes[s]
	if !ok {
		return 0, fmt.Errorf("unencodable inspection status %q", s)
	}
	return raw, nil
}

func EncodeDecommissioningStatus(s domain.DecommissioningStatus) (int, error) {
	raw, ok := decommissioningStatusCodes[s]
	if !ok {
		return 0, fmt.Errorf("unencodable decommissioning status %q", s)
	}
	return raw, nil
}

func EncodeDeviceType(t domain.DeviceType) (int, error) {
	raw, ok := deviceTypeCodes[t]
	if !ok {
		return 0, fmt.Errorf("unencodable device type %q", t)
	}
	return raw, nil
}

func EncodeMaintenanceType(t domain.MaintenanceType) (int, error) {
	raw, ok := maintenanceTypeCodes[t]
	if !ok {
		return 0, fmt.Errorf("unencodable maintenance type %q", t)
	}
	return raw, nil
}

func EncodeDecommissionReason(r domain.DecommissionReason) (int, error) {
	raw, ok := decommissionReasonCodes[r]
	if !ok {
		return 0, fmt.Errorf("unencodable decommission reason %q", r)
	}
	return raw, nil
}

// OperationalStateOrDefault decodes raw, logging and substituting the
// conservative default (UnderRevision) on an unmapped value. Unknown wire
// values must never crash a read path.
func OperationalStateOrDefault(raw int, logger *log.Logger) domain.OperationalState {
	s, err := DecodeOperationalState(raw)
	if err != nil {
		logf(logger, "codec: %v, defaulting to %s", err, domain.StateUnderRevision)
		return domain.StateUnderRevision
	}
	return s
}

// InspectionStatusOrDefault substitutes Pending for unmapped values.
func InspectionStatusOrDefault(raw int, logger *log.Logger) domain.InspectionStatus {
	s, err := DecodeInspectionStatus(raw)
	if err != nil {
		logf(logger, "codec: %v, defaulting to %s", err, domain.InspectionPending)
		return domain.InspectionPending
	}
	return s
}

// DecommissioningStatusOrDefault substitutes Pending for unmapped values.
func DecommissioningStatusOrDefault(raw int, logger *log.Logger) domain.DecommissioningStatus {
	s, err := DecodeDecommissioningStatus(raw)
	if err != nil {
		logf(logger, "codec: %v, defaulting to %s", err, domain.DecommissioningPending)
		return domain.DecommissioningPending
	}
	return s
}

// DeviceTypeOrDefault substitutes Other for unmapped values.
func DeviceTypeOrDefault(raw int, logger *log.Logger) domain.DeviceType {
	t, err := DecodeDeviceType(raw)
	if err != nil {
		logf(logger, "codec: %v, defaulting to %s", err, domain.DeviceOther)
		return domain.DeviceOther
	}
	return t
}

// DecommissionReasonOrDefault substitutes Other for unmapped values.
func DecommissionReasonOrDefault(raw int, logger *log.Logger) domain.DecommissionReason {
	r, err := DecodeDecommissionReason(raw)
	if err != nil {
		logf(logger, "codec: %v, defaulting to %s", err, domain.ReasonOther)
		return domain.ReasonOther
	}
	return r
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
