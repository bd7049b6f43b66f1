package contracts

type Status string

const (
	StatusPending      Status = "PENDING"
	StatusSignedFarmer Status = "SIGNED_FARMER"
	StatusActive       Status = "ACTIVE"
	StatusRejected     Status = "REJECTED"
	StatusCancelled    Status = "CANCELLED"
	StatusCompleted    Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSignedFarmer, StatusActive, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Signable states accept signatures and farmer rejection.
var signable = map[Status]bool{
	StatusPending:      true,
	StatusSignedFarmer: true,
}

func Signable(s Status) bool { return signable[s] }
