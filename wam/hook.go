package wam

import "io"

// StepHook is triggered before the machine executes each instruction. If
// it returns an error, the run aborts with that error.
type StepHook func(instr Instruction) error

// DebugStepHook returns a hook that prints every executed instruction to
// w, one per line.
func DebugStepHook(w io.Writer) StepHook {
	return func(instr Instruction) error {
		_, err := io.WriteString(w, instr.String()+"\n")
		return err
	}
}

// CompositeStepHook chains hooks together, running them in order and
// stopping at the first error.
func CompositeStepHook(hooks ...StepHook) StepHook {
	return func(instr Instruction) error {
		for _, h := range hooks {
			if err := h(instr); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithStepHook installs a hook run before every instruction (spec.md's
// debugging surface, grounded on the teacher's VM HookFunc).
func WithStepHook(h StepHook) Option { return func(m *Machine) { m.stepHook = h } }
