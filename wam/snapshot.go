package wam

import (
	"encoding/json"
	"io"
)

// SnapshotWriter emits one JSON record per instruction step (and one per
// backtrack) to an underlying writer, the debug trace format of spec.md
// §6 "Snapshot format". No third-party JSON or JSONL library in the pack
// improves on encoding/json for a flat line-delimited writer this size
// (see DESIGN.md): this is the one ambient concern implemented directly
// on the standard library.
type SnapshotWriter struct {
	w   io.Writer
	enc *json.Encoder
}

// NewSnapshotWriter wraps w to receive one JSON object per line.
func NewSnapshotWriter(w io.Writer) *SnapshotWriter {
	return &SnapshotWriter{w: w, enc: json.NewEncoder(w)}
}

type codePtrRecord struct {
	Instruction string `json:"instruction"`
	Pos         int    `json:"pos"`
}

type complexArgRecord struct {
	Mode  string `json:"mode"`
	Index int    `json:"index"`
	Cell  string `json:"cell,omitempty"`
}

type envRecord struct {
	PermVars []string `json:"perm_vars"`
}

type choicePointRecord struct {
	Candidates int `json:"candidates"`
	TrailMark  int `json:"trail_mark"`
}

type unifFrameRecord struct {
	Var   string `json:"var"`
	Pkg   string `json:"pkg"`
	Value string `json:"value"`
}

type snapshotRecord struct {
	Mode         string              `json:"mode"`
	Continuation bool                `json:"continuation"`
	ComplexArg   complexArgRecord    `json:"complex_arg"`
	CodePtr      codePtrRecord       `json:"code_ptr"`
	Reg          []string            `json:"reg"`
	Clauses      int                 `json:"clauses"`
	Envs         []envRecord         `json:"envs"`
	EnvPos       int                 `json:"env_pos"`
	ChoicePoints []choicePointRecord `json:"choice_points"`
	ChoicePos    int                 `json:"choice_pos"`
	UnifFrames   []unifFrameRecord   `json:"unif_frames"`
	Attributes   []string            `json:"attributes"`
	Backtrack    bool                `json:"backtrack"`
}

func (m *Machine) snapshotRecord(instr Instruction, backtrack bool) snapshotRecord {
	mode := "read"
	if m.arg.mode == modeWrite {
		mode = "write"
	}

	reg := make([]string, len(m.regs))
	for i, c := range m.regs {
		if c == nil {
			continue
		}
		reg[i] = m.writeCell(c)
	}

	var envs []envRecord
	for e := m.envTop; e != nil; e = e.prev {
		vars := make([]string, len(e.permVars))
		for i, c := range e.permVars {
			if c == nil {
				continue
			}
			vars[i] = m.writeCell(c)
		}
		envs = append(envs, envRecord{PermVars: vars})
	}

	var cps []choicePointRecord
	for cp := m.choiceTop; cp != nil; cp = cp.prev {
		cps = append(cps, choicePointRecord{Candidates: len(cp.candidates), TrailMark: cp.trailMark})
	}

	var frames []unifFrameRecord
	for _, f := range m.pendingFrames {
		frames = append(frames, unifFrameRecord{Var: m.writeCell(f.Var), Pkg: f.Pkg, Value: m.writeCell(f.Value)})
	}

	var attrs []string
	for v := range m.attributes {
		attrs = append(attrs, m.writeCell(v))
	}

	clauses := 0
	for pair := m.db.predicates.Oldest(); pair != nil; pair = pair.Next() {
		clauses += len(pair.Value.clauses)
	}

	return snapshotRecord{
		Mode:         mode,
		Continuation: m.cont != nil,
		ComplexArg:   complexArgRecord{Mode: mode, Index: m.arg.index},
		CodePtr:      codePtrRecord{Instruction: instr.String(), Pos: m.pos},
		Reg:          reg,
		Clauses:      clauses,
		Envs:         envs,
		EnvPos:       len(envs),
		ChoicePoints: cps,
		ChoicePos:    len(cps),
		UnifFrames:   frames,
		Attributes:   attrs,
		Backtrack:    backtrack,
	}
}

func (m *Machine) writeStep(instr Instruction) {
	if m.snapshot == nil {
		return
	}
	_ = m.snapshot.enc.Encode(m.snapshotRecord(instr, false))
}

func (m *Machine) writeBacktrackRecord() {
	if m.snapshot == nil {
		return
	}
	_ = m.snapshot.enc.Encode(m.snapshotRecord(Instruction{}, true))
}

// writeStep and writeBacktrack are the SnapshotWriter-facing wrappers
// called from the dispatch loop in machine.go.
func (w *SnapshotWriter) writeStep(m *Machine, instr Instruction) {
	m.writeStep(instr)
}

func (w *SnapshotWriter) writeBacktrack(m *Machine) {
	m.writeBacktrackRecord()
}
