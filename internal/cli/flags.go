package cli

import (
	"github.com/spf13/pflag"

	"github.com/mgriffes/jobforge/pkg/scheduler"
)

// policyValue is a pflag.Value for the scheduler idle policy, so an
// unknown policy fails at flag parse time instead of inside the
// command.
type policyValue struct {
	policy scheduler.IdlePolicy
}

var _ pflag.Value = (*policyValue)(nil)

func (v *policyValue) String() string { return string(v.policy) }

func (v *policyValue) Set(s string) error {
	p, err := scheduler.ParseIdlePolicy(s)
	if err != nil {
		return err
	}
	v.policy = p
	return nil
}

func (v *policyValue) Type() string { return "policy" }
