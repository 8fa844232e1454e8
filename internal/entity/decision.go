package entity

type DecisionAction string

const (
	DecisionApprove DecisionAction = "approve"
	DecisionReject  DecisionAction = "reject"
)

func (a DecisionAction) Valid() bool {
	return a == DecisionApprove || a == DecisionReject
}
