package lang

// Matcher locates the first occurrence of any of a fixed set of needles in a
// text, in a single left-to-right pass (an Aho–Corasick automaton).
type Matcher struct {
	needles []string
	next    []map[byte]int
	fail    []int
	// out[s] is the longest needle recognised on reaching state s, following
	// failure links, or -1.
	out []int
}

// NewMatcher builds a Matcher for needles. Empty needles are ignored.
func NewMatcher(needles ...string) *Matcher {
	m := &Matcher{
		needles: needles,
		next:    []map[byte]int{{}},
		fail:    []int{0},
		out:     []int{-1},
	}

	for i, needle := range needles {
		if needle == "" {
			continue
		}

		s := 0

		for j := range len(needle) {
			t, ok := m.next[s][needle[j]]
			if !ok {
				t = len(m.next)
				m.next = append(m.next, map[byte]int{})
				m.fail = append(m.fail, 0)
				m.out = append(m.out, -1)
				m.next[s][needle[j]] = t
			}

			s = t
		}

		if m.out[s] < 0 || len(needles[m.out[s]]) < len(needle) {
			m.out[s] = i
		}
	}

	// Breadth-first over the trie so that every failure link points to a
	// state whose own link is already final.
	queue := make([]int, 0, len(m.next))
	for _, t := range m.next[0] {
		queue = append(queue, t)
	}

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		for c, t := range m.next[s] {
			queue = append(queue, t)

			f := m.fail[s]
			for f > 0 {
				if _, ok := m.next[f][c]; ok {
					break
				}

				f = m.fail[f]
			}

			if g, ok := m.next[f][c]; ok && g != t {
				m.fail[t] = g
			}

			if m.out[t] < 0 {
				m.out[t] = m.out[m.fail[t]]
			}
		}
	}

	return m
}

// Needles returns the needles the Matcher was built with.
func (m *Matcher) Needles() []string { return m.needles }

// Find returns the byte offset in text of the first needle occurrence at or
// after offset from, and the index of that needle in [Matcher.Needles].
// The first occurrence is the one that ends first; of needles ending at the
// same offset the longest wins. Find returns -1, -1 if nothing matches.
func (m *Matcher) Find(text string, from int) (pos, needle int) {
	s := 0

	for i := max(0, from); i < len(text); i++ {
		c := text[i]

		for {
			if t, ok := m.next[s][c]; ok {
				s = t

				break
			}

			if s == 0 {
				break
			}

			s = m.fail[s]
		}

		if n := m.out[s]; n >= 0 {
			return i + 1 - len(m.needles[n]), n
		}
	}

	return -1, -1
}
