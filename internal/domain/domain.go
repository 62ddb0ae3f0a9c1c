package domain

// OperationalState is the canonical client-side device state. Backend wire
// integers are mapped in internal/codec and never compared directly.
type OperationalState string

const (
	StateUnderRevision    OperationalState = "under_revision"
	StateRevised          OperationalState = "revised"
	StateOperational      OperationalState = "operational"
	StateUnderMaintenance OperationalState = "under_maintenance"
	StateDecommissioned   OperationalState = "decommissioned"
	StateBeingTransferred OperationalState = "being_transferred"
)

// Terminal reports whether no further lifecycle transition is permitted.
func (s OperationalState) Terminal() bool { return s == StateDecommissioned }

type InspectionStatus string

const (
	InspectionPending  InspectionStatus = "pending"
	InspectionApproved InspectionStatus = "approved"
	InspectionRejected InspectionStatus = "rejected"
)

func (s InspectionStatus) Terminal() bool { return s != InspectionPending }

type DecommissioningStatus string

const (
	DecommissioningAccepted DecommissioningStatus = "accepted"
	DecommissioningRejected DecommissioningStatus = "rejected"
	DecommissioningPending  DecommissioningStatus = "pending"
)

func (s DecommissioningStatus) Terminal() bool { return s != DecommissioningPending }

type DeviceType string

const (
	DeviceComputer   DeviceType = "computer"
	DevicePrinter    DeviceType = "printer"
	DeviceScanner    DeviceType = "scanner"
	DeviceNetwork    DeviceType = "network"
	DevicePeripheral DeviceType = "peripheral"
	DeviceOther      DeviceType = "other"
)

type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "preventive"
	MaintenanceCorrective MaintenanceType = "corrective"
)

type DecommissionReason string

const (
	ReasonObsolete     DecommissionReason = "obsolete"
	ReasonBeyondRepair DecommissionReason = "beyond_repair"
	ReasonLost         DecommissionReason = "lost"
	ReasonEndOfLease   DecommissionReason = "end_of_lease"
	ReasonOther        DecommissionReason = "other"
)

type Device struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Type            DeviceType       `json:"type"`
	State           OperationalState `json:"state"`
	DepartmentID    int64            `json:"department_id"`
	DepartmentName  string           `json:"department_name,omitempty"`
	SectionID       *int64           `json:"section_id,omitempty"`
	SectionName     string           `json:"section_name,omitempty"`
	AcquisitionDate string           `json:"acquisition_date,omitempty" format:"date-time"`
}

type InspectionRequest struct {
	RequestID    int64            `json:"request_id"`
	DeviceID     int64            `json:"device_id"`
	DeviceName   string           `json:"device_name,omitempty"`
	RequesterID  int64            `json:"requester_id"`
	TechnicianID int64            `json:"technician_id"`
	RequestDate  string           `json:"request_date" format:"date-time"`
	Status       InspectionStatus `json:"status"`
	RejectReason string           `json:"reject_reason,omitempty"`
}

type DecommissioningRequest struct {
	ID                 int64                 `json:"id"`
	DeviceID           int64                 `json:"device_id"`
	DeviceName         string                `json:"device_name,omitempty"`
	TechnicianID       int64                 `json:"technician_id"`
	RequestDate        string                `json:"request_date" format:"date-time"`
	Status             DecommissioningStatus `json:"status"`
	Reason             DecommissionReason    `json:"reason"`
	Description        string                `json:"description,omitempty"`
	ReviewedDate       *string               `json:"reviewed_date,omitempty" format:"date-time"`
	ReviewedByUserID   *int64                `json:"reviewed_by_user_id,omitempty"`
	ReceiverUserID     *int64                `json:"receiver_user_id,omitempty"`
	FinalDestinationID *int64                `json:"final_destination_id,omitempty"`
}

type User struct {
	ID           int64  `json:"id"`
	Role         string `json:"role"`
	DepartmentID int64  `json:"department_id"`
	Name         string `json:"name,omitempty"`
}

type Technician struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	DepartmentID int64  `json:"department_id"`
}

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Section struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DepartmentID int64  `json:"department_id"`
}

// ActiveWorkflow names which open request, if any, currently drives or
// blocks a device's displayed state.
type ActiveWorkflow string

const (
	WorkflowNone            ActiveWorkflow = "none"
	WorkflowInspection      ActiveWorkflow = "inspection"
	WorkflowDecommissioning ActiveWorkflow = "decommissioning"
)

type WarningKind string

const (
	WarnInconsistent     WarningKind = "inconsistent"
	WarnOrphanedRevision WarningKind = "orphaned_revision"
)

type Warning struct {
	Kind   WarningKind `json:"kind"`
	Detail string      `json:"detail,omitempty"`
}

// DeviceView is the reconciled, display-ready picture of one device: its
// decoded state plus zero-or-one active workflow, with inconsistencies
// attached as a warning instead of aborting the view.
type DeviceView struct {
	Device          Device                  `json:"device"`
	State           OperationalState        `json:"state"`
	ActiveWorkflow  ActiveWorkflow          `json:"active_workflow"`
	Inspection      *InspectionRequest      `json:"inspection,omitempty"`
	Decommissioning *DecommissioningRequest `json:"decommissioning,omitempty"`
	Warning         *Warning                `json:"warning,omitempty"`
}
