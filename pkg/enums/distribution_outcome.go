package enums

// DistributionOutcome labels the result of one engine run for metrics and logs.
type DistributionOutcome string

const (
	DistributionOutcomeCredited      DistributionOutcome = "credited"
	DistributionOutcomeEmpty         DistributionOutcome = "empty"
	DistributionOutcomeReplayed      DistributionOutcome = "replayed"
	DistributionOutcomeConcurrent    DistributionOutcome = "concurrent"
	DistributionOutcomeDataIntegrity DistributionOutcome = "data_integrity"
	DistributionOutcomeConfiguration DistributionOutcome = "configuration"
	DistributionOutcomeTimeout       DistributionOutcome = "timeout"
	DistributionOutcomeInvalid       DistributionOutcome = "invalid"
	DistributionOutcomeFailed        DistributionOutcome = "failed"
)

func (o DistributionOutcome) String() string {
	return string(o)
}
