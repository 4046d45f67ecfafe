package solver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ichiban/prolog"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
)

// coreLibrary is loaded into every interpreter before any clause is
// asserted. solve/2 is a generate-and-test SAT query: label every variable
// 0/1, then require every cnf/2 fact to hold under that labeling. All the
// list plumbing is spelled out so the program leans on ISO builtins only.
const coreLibrary = `
:- dynamic(cnf/2).

bit_at(0, [B|_], B).
bit_at(N, [_|Bs], B) :- N > 0, M is N - 1, bit_at(M, Bs, B).

lit_true(lit(V,pos), Vals) :- bit_at(V, Vals, 1).
lit_true(lit(V,neg), Vals) :- bit_at(V, Vals, 0).

any_true([L|_], Vals) :- lit_true(L, Vals).
any_true([_|Ls], Vals) :- any_true(Ls, Vals).

all_true([], _).
all_true([cnf(_,Lits)|Cs], Vals) :- any_true(Lits, Vals), all_true(Cs, Vals).

label([]).
label([0|Bs]) :- label(Bs).
label([1|Bs]) :- label(Bs).

bools(0, []).
bools(N, [_|Bs]) :- N > 0, M is N - 1, bools(M, Bs).

solve(N, Vals) :-
	bools(N, Vals),
	label(Vals),
	findall(cnf(Id,C), cnf(Id,C), Clauses),
	all_true(Clauses, Vals).
`

// maxPrologVars bounds the generate-and-test search the same way Mock caps
// its brute-force enumeration: this backend exists to demonstrate that the
// Solver Handle interface is swappable, not to scale to real DAGs.
const maxPrologVars = 20

// Prolog is an alternate Solver Handle backend over github.com/ichiban/prolog.
// Clauses are facts cnf(Id, Lits) where each literal is a term lit(V, pos)
// or lit(V, neg); Check runs the generate-and-test solve/2 query from
// coreLibrary.
type Prolog struct {
	mu sync.Mutex
	p  *prolog.Interpreter

	vars  map[registry.Literal]int // positive literal -> dense var index
	order []registry.Literal
	next  int

	base    []cube.Clause
	clauses []factClause

	lastSat  bool
	lastVals []int
	lastCore cube.Cube
}

type factClause struct {
	id   string
	lits []registry.Literal
}

// NewProlog constructs a fresh Prolog-backed Handle with coreLibrary loaded
// and no assertions.
func NewProlog() Handle {
	s := &Prolog{
		p:    prolog.New(nil, nil),
		vars: map[registry.Literal]int{},
	}
	if err := s.p.Exec(coreLibrary); err != nil {
		panic(fmt.Sprintf("solver: prolog core library failed to load: %v", err))
	}
	return s
}

func (s *Prolog) varIndex(l registry.Literal) (int, bool) {
	pos, neg := l, l.Negated()
	if neg {
		pos = l.Not()
	}
	idx, ok := s.vars[pos]
	if !ok {
		idx = s.next
		s.next++
		s.vars[pos] = idx
		s.order = append(s.order, pos)
	}
	return idx, neg
}

func litTerm(idx int, neg bool) string {
	polarity := "pos"
	if neg {
		polarity = "neg"
	}
	return fmt.Sprintf("lit(%d,%s)", idx, polarity)
}

func (s *Prolog) litTermsFor(lits []registry.Literal) string {
	terms := make([]string, len(lits))
	for i, l := range lits {
		idx, neg := s.varIndex(l)
		terms[i] = litTerm(idx, neg)
	}
	return "[" + strings.Join(terms, ",") + "]"
}

func (s *Prolog) assertFact(id string, lits []registry.Literal) error {
	return s.p.Exec(fmt.Sprintf(":- assertz(cnf(%s, %s)).", id, s.litTermsFor(lits)))
}

// Assert implements Handle.
func (s *Prolog) Assert(c cube.Clause) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("base%d", len(s.base))
	s.base = append(s.base, c)
	s.clauses = append(s.clauses, factClause{id: id, lits: c})
	return s.assertFact(id, c)
}

// Block implements Handle.
func (s *Prolog) Block(c cube.Cube) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clause := c.Negate()
	id := fmt.Sprintf("blk%d", len(s.clauses))
	s.clauses = append(s.clauses, factClause{id: id, lits: clause})
	return s.assertFact(id, clause)
}

// BlockActivated implements Handle.
func (s *Prolog) BlockActivated(c cube.Cube, act registry.Literal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clause := append(cube.Clause{}, c.Negate()...)
	clause = append(clause, act.Not())
	id := fmt.Sprintf("blk%d", len(s.clauses))
	s.clauses = append(s.clauses, factClause{id: id, lits: clause})
	return s.assertFact(id, clause)
}

// Check implements Handle by generate-and-test: temporarily asserts the
// assumptions as unit clauses, runs solve/2, then retracts them regardless
// of the outcome.
func (s *Prolog) Check(ctx context.Context, assumptions cube.Cube) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assumeIDs := make([]string, 0, len(assumptions))
	for i, l := range assumptions {
		id := fmt.Sprintf("assume%d", i)
		if err := s.assertFact(id, []registry.Literal{l}); err != nil {
			return false, err
		}
		assumeIDs = append(assumeIDs, id)
	}
	defer func() {
		for _, id := range assumeIDs {
			_ = s.p.Exec(fmt.Sprintf(":- retract(cnf(%s, _)).", id))
		}
	}()

	n := s.next
	if n > maxPrologVars {
		return false, &InvariantViolation{Op: "Check", Msg: "prolog solver: too many variables for generate-and-test"}
	}

	sols, err := s.p.QueryContext(ctx, fmt.Sprintf("solve(%d, Vals).", n))
	if err != nil {
		return false, err
	}
	defer sols.Close()

	if !sols.Next() {
		s.lastSat = false
		s.lastVals = nil
		s.lastCore = assumptions.Clone()
		return false, nil
	}

	var row struct {
		Vals []int
	}
	if err := sols.Scan(&row); err != nil {
		return false, err
	}
	s.lastSat = true
	s.lastVals = row.Vals
	s.lastCore = nil
	return true, nil
}

// CheckWithClause implements Handle: the temporary clause is asserted as a
// cnf/2 fact under a reserved id and retracted once the query returns.
func (s *Prolog) CheckWithClause(ctx context.Context, temp cube.Clause, assumptions cube.Cube) (bool, error) {
	s.mu.Lock()
	if err := s.assertFact("tmp", temp); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()

	sat, err := s.Check(ctx, assumptions)

	s.mu.Lock()
	_ = s.p.Exec(":- retract(cnf(tmp, _)).")
	s.mu.Unlock()
	return sat, err
}

type prologModel struct {
	vals  []int
	index map[registry.Literal]int
}

func (m *prologModel) Value(lit registry.Literal) bool {
	pos, neg := lit, lit.Negated()
	if neg {
		pos = lit.Not()
	}
	idx, ok := m.index[pos]
	if !ok {
		return false
	}
	truth := idx < len(m.vals) && m.vals[idx] == 1
	if neg {
		return !truth
	}
	return truth
}

// Model implements Handle.
func (s *Prolog) Model() (Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastSat {
		return nil, &InvariantViolation{Op: "Model", Msg: "called without a preceding sat Check"}
	}
	return &prologModel{vals: s.lastVals, index: s.vars}, nil
}

// UnsatCore implements Handle. Generate-and-test has no notion of a minimal
// refutation, so like Mock it conservatively returns every assumption that
// survives filter/mapFn.
func (s *Prolog) UnsatCore(filter func(registry.Literal) bool, mapFn func(registry.Literal) registry.Literal) (cube.Cube, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastCore == nil && s.lastSat {
		return nil, &InvariantViolation{Op: "UnsatCore", Msg: "called without a preceding unsat Check"}
	}
	var out []registry.Literal
	for _, l := range s.lastCore {
		if filter(l) {
			out = append(out, mapFn(l))
		}
	}
	return cube.New(out...), nil
}

// Reset implements Handle.
func (s *Prolog) Reset() error {
	s.mu.Lock()
	base := s.base
	s.base = nil
	s.clauses = nil
	s.vars = map[registry.Literal]int{}
	s.order = nil
	s.next = 0
	s.lastSat = false
	s.lastVals = nil
	s.lastCore = nil
	s.p = prolog.New(nil, nil)
	if err := s.p.Exec(coreLibrary); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	for _, c := range base {
		if err := s.Assert(c); err != nil {
			return err
		}
	}
	return nil
}

// ResetWith implements Handle.
func (s *Prolog) ResetWith(cubes []cube.Cube) error {
	if err := s.Reset(); err != nil {
		return err
	}
	for _, c := range cubes {
		if err := s.Block(c); err != nil {
			return err
		}
	}
	return nil
}

// Dump implements Handle.
func (s *Prolog) Dump() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]string, len(s.clauses))
	for i, fc := range s.clauses {
		terms := make([]string, len(fc.lits))
		for j, l := range fc.lits {
			terms[j] = litTerm(s.vars[litKey(l)], l.Negated())
		}
		lines[i] = fmt.Sprintf("- cnf(%s, %s)", fc.id, "["+strings.Join(terms, ",")+"]")
	}
	sort.Strings(lines)
	return "prolog solver clauses:\n" + strings.Join(lines, "\n")
}

func litKey(l registry.Literal) registry.Literal {
	if l.Negated() {
		return l.Not()
	}
	return l
}
