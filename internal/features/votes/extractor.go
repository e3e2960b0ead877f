package votes

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"scorebot.dev/plusplus-bot/internal/chat"
	"scorebot.dev/plusplus-bot/internal/common"
)

// Extractor turns raw message text into a typed Intent. It holds no
// mutable state: identical input always yields an identical Intent.
type Extractor struct {
	tables *Tables
}

// NewExtractor creates an extractor over the given lexical tables.
func NewExtractor(tables *Tables) *Extractor {
	return &Extractor{tables: tables}
}

// Extract recognizes at most one intent per message. The grammar rules
// are tried independently in priority order; the first structural match
// wins. A nil return means no match, which is the normal outcome for
// most chat traffic.
func (e *Extractor) Extract(text string, mentions []chat.Mention) Intent {
	// The grammar is line-based: reasons run to end of line, and a
	// marker on a later line never combines with text on the first.
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}

	if intent, ok := e.matchErase(text); ok {
		return intent
	}
	if intent, ok := e.matchMultiVote(text, mentions); ok {
		return intent
	}
	if intent, ok := e.matchSingleVote(text); ok {
		return intent
	}
	if intent, ok := e.matchTokenTransfer(text); ok {
		return intent
	}
	if intent, ok := e.matchScoreQuery(text); ok {
		return intent
	}
	return nil
}

// --- grammar rules ---

// matchErase: erase keyword, target marker, optional reason (with or
// without a conjunction). Authorization is enforced downstream.
func (e *Extractor) matchErase(text string) (Intent, bool) {
	rest := strings.TrimSpace(text)
	kw := e.tables.eraseKeyword
	if len(rest) <= len(kw) || !strings.EqualFold(rest[:len(kw)], kw) {
		return nil, false
	}
	rest = rest[len(kw):]
	if !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
		return nil, false
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "@") {
		return nil, false
	}
	name, end, ok := e.parseMarker(rest, 0)
	if !ok {
		return nil, false
	}
	tail := strings.TrimSpace(rest[end:])
	if _, n, found := e.tables.matchConjunction(tail); found {
		tail = strings.TrimSpace(tail[n:])
	}
	return Erase{Target: common.NormalizeName(name), Reason: tail}, true
}

// matchMultiVote: a bracketed group with 2+ markers, an operator after
// the closing bracket, and the usual tail. When the platform supplied a
// resolved-mentions list, the parsed target count must equal the number
// of distinct user mentions, otherwise the free-text split cannot be
// trusted and the whole message is treated as no match.
func (e *Extractor) matchMultiVote(text string, mentions []chat.Mention) (Intent, bool) {
	open := strings.IndexAny(text, "{[(")
	if open < 0 {
		return nil, false
	}
	closing := bracketClose(text[open])
	rel := strings.IndexByte(text[open+1:], closing)
	if rel < 0 {
		return nil, false
	}
	closeIdx := open + 1 + rel
	inside := text[open+1 : closeIdx]
	if strings.Count(inside, "@") < 2 {
		return nil, false
	}

	targets := parseGroupTargets(inside)
	if len(targets) == 0 {
		return nil, false
	}
	if resolved, supplied := distinctUserMentions(mentions); supplied && resolved != len(targets) {
		return nil, false
	}

	k := skipSpaces(text, closeIdx+1)
	delta, opLen, ok := e.tables.matchOperator(text[k:])
	if !ok {
		return nil, false
	}
	conj, reason, silent := e.parseTail(text[k+opLen:])

	return MultiVote{
		Targets:     targets,
		Premessage:  strings.TrimSpace(text[:open]),
		Delta:       delta,
		Conjunction: conj,
		Reason:      reason,
		Silent:      silent,
	}, true
}

// matchSingleVote: optional premessage, one marker, an operator, then
// the tail (conjunction, reason, silent flag).
func (e *Extractor) matchSingleVote(text string) (Intent, bool) {
	for pos := e.nextMarker(text, 0); pos >= 0; pos = e.nextMarker(text, pos+1) {
		name, end, ok := e.parseMarker(text, pos)
		if !ok {
			continue
		}
		k := skipSpaces(text, end)
		delta, opLen, opOK := e.tables.matchOperator(text[k:])
		if !opOK {
			continue
		}
		target := common.NormalizeName(name)
		if target == "" {
			continue
		}
		conj, reason, silent := e.parseTail(text[k+opLen:])
		return SingleVote{
			Target:      target,
			Premessage:  strings.TrimSpace(text[:pos]),
			Delta:       delta,
			Conjunction: conj,
			Reason:      reason,
			Silent:      silent,
		}, true
	}
	return nil, false
}

// matchTokenTransfer: marker, single "+", numeric amount, optional
// reason. A "++" at that position belongs to the vote grammar instead.
func (e *Extractor) matchTokenTransfer(text string) (Intent, bool) {
	for pos := e.nextMarker(text, 0); pos >= 0; pos = e.nextMarker(text, pos+1) {
		name, end, ok := e.parseMarker(text, pos)
		if !ok {
			continue
		}
		k := skipSpaces(text, end)
		if k >= len(text) || text[k] != '+' || strings.HasPrefix(text[k:], "++") {
			continue
		}
		m := skipSpaces(text, k+1)
		d := m
		for d < len(text) && text[d] >= '0' && text[d] <= '9' {
			d++
		}
		if d == m {
			continue
		}
		amount, err := strconv.ParseInt(text[m:d], 10, 64)
		if err != nil {
			continue
		}
		target := common.NormalizeName(name)
		if target == "" {
			continue
		}
		conj, reason, _ := e.parseTail(text[d:])
		return TokenTransfer{
			Target:      target,
			Amount:      amount,
			Conjunction: conj,
			Reason:      reason,
		}, true
	}
	return nil, false
}

// matchScoreQuery: a score keyword leading the message, then a marker
// somewhere after it ("score for @derp", "karma @derp").
func (e *Extractor) matchScoreQuery(text string) (Intent, bool) {
	rest := strings.TrimSpace(text)
	n, ok := e.tables.matchScoreKeyword(rest)
	if !ok {
		return nil, false
	}
	after := rest[n:]
	pos := e.nextMarker(after, 0)
	if pos < 0 {
		return nil, false
	}
	name, _, ok := e.parseMarker(after, pos)
	if !ok {
		return nil, false
	}
	target := common.NormalizeName(name)
	if target == "" {
		return nil, false
	}
	return ScoreQuery{Target: target}, true
}

// --- tokenizer helpers ---

// nextMarker finds the next '@' that introduces a marker: it must not
// be glued to a preceding name rune (keeps emails out) and must be
// followed by at least one name rune.
func (e *Extractor) nextMarker(text string, from int) int {
	for i := from; i < len(text); {
		rel := strings.IndexByte(text[i:], '@')
		if rel < 0 {
			return -1
		}
		pos := i + rel
		if pos > 0 {
			if prev, _ := utf8.DecodeLastRuneInString(text[:pos]); isNameRune(prev) {
				i = pos + 1
				continue
			}
		}
		if _, _, ok := e.parseMarker(text, pos); ok {
			return pos
		}
		i = pos + 1
	}
	return -1
}

// parseMarker consumes a marker starting at text[at] (an '@'). The name
// spans the restricted character class; consumption stops early when
// the upcoming runes spell an operator, so "@derp++" yields "derp" and
// leaves "++" in place.
func (e *Extractor) parseMarker(text string, at int) (name string, end int, ok bool) {
	j := at + 1
	for j < len(text) {
		if strings.HasPrefix(text[j:], "--") {
			break
		}
		if _, _, opOK := e.tables.matchOperator(text[j:]); opOK {
			break
		}
		r, size := utf8.DecodeRuneInString(text[j:])
		if !isNameRune(r) {
			break
		}
		j += size
	}
	name = text[at+1 : j]
	if name == "" {
		return "", at, false
	}
	return name, j, true
}

// isNameRune reports whether r may appear inside a marker name: word
// characters (any script, which covers the CJK and kana ranges),
// hyphen, dot, and colon.
func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' || r == ':'
}

// parseTail handles everything after an operator: trailing silent flag
// first, then an optional conjunction introducing the reason. Without a
// conjunction the whole remainder is the reason, verbatim.
func (e *Extractor) parseTail(tail string) (conj, reason string, silent bool) {
	rest := strings.TrimSpace(tail)
	rest, silent = stripSilentFlag(rest, e.tables.silentFlags)
	if rest == "" {
		return "", "", silent
	}
	if kw, n, ok := e.tables.matchConjunction(rest); ok {
		return kw, strings.TrimSpace(rest[n:]), silent
	}
	return "", rest, silent
}

// stripSilentFlag removes a silent-flag token from the end of s.
func stripSilentFlag(s string, flags []string) (string, bool) {
	for _, f := range flags {
		if strings.EqualFold(s, f) {
			return "", true
		}
		if len(s) > len(f) && strings.EqualFold(s[len(s)-len(f):], f) {
			if r, _ := utf8.DecodeLastRuneInString(s[:len(s)-len(f)]); unicode.IsSpace(r) {
				return strings.TrimSpace(s[:len(s)-len(f)]), true
			}
		}
	}
	return s, false
}

// parseGroupTargets splits a bracketed group on commas, colons and
// whitespace, keeps marker tokens, normalizes them, and de-duplicates
// preserving first-seen order.
func parseGroupTargets(inside string) []string {
	fields := strings.FieldsFunc(inside, func(r rune) bool {
		return r == ',' || r == ':' || unicode.IsSpace(r)
	})
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if !strings.HasPrefix(f, "@") {
			continue
		}
		name := common.NormalizeName(strings.TrimPrefix(f, "@"))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// distinctUserMentions counts distinct user mentions. supplied is false
// when the platform did not attach a mention list at all.
func distinctUserMentions(mentions []chat.Mention) (count int, supplied bool) {
	if len(mentions) == 0 {
		return 0, false
	}
	seen := make(map[string]bool, len(mentions))
	for _, m := range mentions {
		if m.Type != chat.MentionUser || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		count++
	}
	return count, true
}

func bracketClose(open byte) byte {
	switch open {
	case '{':
		return '}'
	case '[':
		return ']'
	default:
		return ')'
	}
}

func skipSpaces(text string, i int) int {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	return i
}
