package resolve

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Some source attributes are multipliers over a base value rather than
// absolute numbers; derivation rules compute the absolute forms once, after
// the inheritance overlay, so derived fields always agree with the final
// overlaid inputs. Rules are plain expressions over already-normalized
// attribute names; missing inputs evaluate as zero.

type derivation struct {
	out    string
	src    string
	inputs []string
}

var derivationRules = map[string][]derivation{
	"engine": {
		{
			out:    "travel_thrust_abs",
			src:    "thrust_forward * travel_thrust",
			inputs: []string{"thrust_forward", "travel_thrust"},
		},
		{
			out:    "boost_thrust_abs",
			src:    "thrust_forward * boost_thrust",
			inputs: []string{"thrust_forward", "boost_thrust"},
		},
	},
}

type compiledDerivation struct {
	derivation
	prog *vm.Program
}

var (
	compileOnce sync.Once
	compiled    map[string][]compiledDerivation
)

func compiledRules() map[string][]compiledDerivation {
	compileOnce.Do(func() {
		compiled = make(map[string][]compiledDerivation, len(derivationRules))
		for class, rules := range derivationRules {
			for _, r := range rules {
				prog, err := expr.Compile(r.src)
				if err != nil {
					panic("bad derivation rule " + r.out + ": " + err.Error())
				}
				compiled[class] = append(compiled[class], compiledDerivation{derivation: r, prog: prog})
			}
		}
	})
	return compiled
}

func (s *Session) derive(rec *Record) {
	for _, rule := range compiledRules()[rec.Class] {
		env := make(map[string]any, len(rule.inputs))
		for _, in := range rule.inputs {
			env[in] = toFloat(rec.Attr(in))
		}
		out, err := expr.Run(rule.prog, env)
		if err != nil {
			s.logger.Debug("derivation failed", "macro", rec.ID, "attr", rule.out, "err", err)
			continue
		}
		rec.Attrs[rule.out] = toFloat(out)
	}
}
