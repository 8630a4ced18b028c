// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package compiler

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const includeTail = `, \Illuminate\Support\Arr::except(get_defined_vars(), ['__data', '__path']))->render(); ?>`

var (
	verbatimRe = regexp.MustCompile(`(?s)@verbatim(.*?)@endverbatim`)
	phpBlockRe = regexp.MustCompile(`(?s)@php(\s.*?)@endphp`)
	rawPHPRe   = regexp.MustCompile(`(?s)<\?(?:php\b|=).*?(?:\?>|\z)`)
	commentRe  = regexp.MustCompile(`(?s)\{\{--.*?--\}\}`)
	rawEchoRe  = regexp.MustCompile(`(?s)(@)?\{!!\s*(.+?)\s*!!\}(\r?\n)?`)
	tripleRe   = regexp.MustCompile(`(?s)(@)?\{\{\{\s*(.+?)\s*\}\}\}(\r?\n)?`)
	echoRe     = regexp.MustCompile(`(?s)(@)?\{\{\s*(.+?)\s*\}\}(\r?\n)?`)
	stashRe    = regexp.MustCompile(`\x00(\d+)\x00`)
)

// Blade compiles the commonly used subset of Laravel's Blade syntax:
// echoes, comments, @verbatim and @php blocks, the control structure directives,
// and the layout directives (@extends, @section, @yield, @include).
// Unknown directives are left untouched, as Blade does.
//
// Malformed templates still compile; the mistakes surface as invalid PHP,
// for example an unbalanced `@if($x` becomes `<?php if: ?>`.
type Blade struct{}

// NewBlade returns the built-in Blade compiler.
func NewBlade() *Blade {
	return &Blade{}
}

// Compile implements Compiler.
func (b *Blade) Compile(ctx context.Context, template []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	s := &bladeState{}

	return []byte(s.compile(string(template))), nil
}

// bladeState holds what one compilation needs across passes.
type bladeState struct {
	stash        []string
	footer       []string
	forelse      int
	forelseStack []int
	firstCase    bool
}

func (s *bladeState) compile(src string) string {
	// Placeholders are NUL delimited; NULs already in the template are stashed first
	// so no text of the template can be mistaken for a placeholder.
	if strings.Contains(src, "\x00") {
		src = strings.ReplaceAll(src, "\x00", s.put("\x00"))
	}

	src = replaceSubmatch(verbatimRe, src, func(m []string) string { return s.put(m[1]) })
	src = replaceSubmatch(phpBlockRe, src, func(m []string) string { return s.put("<?php" + m[1] + "?>") })
	src = replaceSubmatch(rawPHPRe, src, func(m []string) string { return s.put(m[0]) })
	src = commentRe.ReplaceAllString(src, "")
	src = s.compileStatements(src)
	src = s.compileEchos(src)

	if len(s.footer) > 0 {
		src += "\n" + strings.Join(s.footer, "\n")
	}

	return s.restore(src, len(s.stash))
}

// restore swaps placeholders below limit back for their text. Stashed text can hold earlier
// placeholders, e.g. a raw PHP tag inside an escaped echo, so entry i is restored with limit i.
func (s *bladeState) restore(src string, limit int) string {
	return stashRe.ReplaceAllStringFunc(src, func(p string) string {
		i, err := strconv.Atoi(stashRe.FindStringSubmatch(p)[1])
		if err != nil || i >= limit {
			return p
		}

		return s.restore(s.stash[i], i)
	})
}

// put stashes text that later passes must not see and returns its placeholder.
func (s *bladeState) put(text string) string {
	s.stash = append(s.stash, text)
	return fmt.Sprintf("\x00%d\x00", len(s.stash)-1)
}

func (s *bladeState) compileEchos(src string) string {
	src = replaceSubmatch(rawEchoRe, src, func(m []string) string {
		if m[1] != "" {
			return s.put(m[0][1:])
		}

		return "<?php echo " + m[2] + "; ?>" + m[3] + m[3]
	})

	escaped := func(m []string) string {
		if m[1] != "" {
			return s.put(m[0][1:])
		}

		return "<?php echo e(" + m[2] + "); ?>" + m[3] + m[3]
	}

	src = replaceSubmatch(tripleRe, src, escaped)

	return replaceSubmatch(echoRe, src, escaped)
}

func (s *bladeState) compileStatements(src string) string {
	var out strings.Builder

	i := 0
	for i < len(src) {
		at := strings.IndexByte(src[i:], '@')
		if at < 0 {
			out.WriteString(src[i:])
			break
		}

		at += i
		out.WriteString(src[i:at])

		// An @ glued to a word, as in an e-mail address, is not a directive.
		if at > 0 && isWordByte(src[at-1]) {
			out.WriteByte('@')
			i = at + 1

			continue
		}

		start := at + 1
		escaped := start < len(src) && src[start] == '@'

		if escaped {
			start++
		}

		end := start
		for end < len(src) && isWordByte(src[end]) {
			end++
		}

		name := src[start:end]

		switch {
		case name == "":
			out.WriteString(src[at:start])
			i = start

			continue
		case escaped:
			out.WriteString(src[at+1 : end])
			i = end

			continue
		}

		args := ""

		p := end
		for p < len(src) && (src[p] == ' ' || src[p] == '\t') {
			p++
		}

		if p < len(src) && src[p] == '(' {
			if closing, ok := matchParen(src, p); ok {
				args = src[p : closing+1]
				end = closing + 1
			}
		}

		compiled, ok := s.directive(name, args)
		if !ok {
			out.WriteString(src[at:end])
		} else {
			out.WriteString(compiled)
		}

		i = end
	}

	return out.String()
}

func (s *bladeState) directive(name, args string) (string, bool) {
	switch name {
	case "if":
		return "<?php if" + args + ": ?>", true
	case "elseif":
		return "<?php elseif" + args + ": ?>", true
	case "else":
		return "<?php else: ?>", true
	case "endif", "endunless", "endisset", "endforelse":
		if name == "endforelse" && len(s.forelseStack) > 0 {
			s.forelseStack = s.forelseStack[:len(s.forelseStack)-1]
		}

		return "<?php endif; ?>", true
	case "unless":
		return "<?php if (! " + args + "): ?>", true
	case "isset":
		return "<?php if(isset" + args + "): ?>", true
	case "empty":
		if args != "" {
			return "<?php if(empty" + args + "): ?>", true
		}

		if len(s.forelseStack) == 0 {
			return "<?php endforeach; if (true): ?>", true
		}

		return fmt.Sprintf("<?php endforeach; if ($__empty_%d): ?>", s.forelseStack[len(s.forelseStack)-1]), true
	case "endempty":
		return "<?php endif; ?>", true
	case "forelse":
		s.forelse++
		s.forelseStack = append(s.forelseStack, s.forelse)

		return fmt.Sprintf("<?php $__empty_%[1]d = true; foreach%[2]s: $__empty_%[1]d = false; ?>", s.forelse, args), true
	case "foreach":
		return "<?php foreach" + args + ": ?>", true
	case "endforeach":
		return "<?php endforeach; ?>", true
	case "for":
		return "<?php for" + args + ": ?>", true
	case "endfor":
		return "<?php endfor; ?>", true
	case "while":
		return "<?php while" + args + ": ?>", true
	case "endwhile":
		return "<?php endwhile; ?>", true
	case "switch":
		s.firstCase = true
		// Left open: nothing, not even whitespace, may be output before the first case.
		return "<?php switch" + args + ":", true
	case "case":
		if s.firstCase {
			s.firstCase = false
			return "case " + stripParens(args) + ": ?>", true
		}

		return "<?php case " + stripParens(args) + ": ?>", true
	case "default":
		return "<?php default: ?>", true
	case "endswitch":
		return "<?php endswitch; ?>", true
	case "break", "continue":
		if args == "" {
			return "<?php " + name + "; ?>", true
		}

		return "<?php if" + args + " " + name + "; ?>", true
	case "php":
		if args == "" {
			return "", false
		}

		return "<?php " + args + "; ?>", true
	case "csrf":
		return "<?php echo csrf_field(); ?>", true
	case "method":
		return "<?php echo method_field" + args + "; ?>", true
	case "json":
		return "<?php echo json_encode" + args + "; ?>", true
	case "include":
		return "<?php echo $__env->make(" + stripParens(args) + includeTail, true
	case "extends":
		s.footer = append(s.footer, "<?php echo $__env->make("+stripParens(args)+includeTail)
		return "", true
	case "section":
		return "<?php $__env->startSection" + args + "; ?>", true
	case "endsection", "stop":
		return "<?php $__env->stopSection(); ?>", true
	case "show":
		return "<?php echo $__env->yieldSection(); ?>", true
	case "yield":
		return "<?php echo $__env->yieldContent" + args + "; ?>", true
	}

	return "", false
}

// matchParen returns the index of the parenthesis closing the one at open,
// skipping over quoted strings.
func matchParen(src string, open int) (int, bool) {
	depth := 0

	var quote byte

	for i := open; i < len(src); i++ {
		c := src[i]

		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}

			continue
		}

		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}

func stripParens(args string) string {
	if strings.HasPrefix(args, "(") && strings.HasSuffix(args, ")") {
		return args[1 : len(args)-1]
	}

	return args
}

func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// replaceSubmatch is regexp.ReplaceAllStringFunc with access to the capture groups.
func replaceSubmatch(re *regexp.Regexp, src string, fn func(groups []string) string) string {
	var out strings.Builder

	last := 0

	for _, loc := range re.FindAllStringSubmatchIndex(src, -1) {
		out.WriteString(src[last:loc[0]])

		groups := make([]string, len(loc)/2)
		for g := range groups {
			if loc[2*g] >= 0 {
				groups[g] = src[loc[2*g]:loc[2*g+1]]
			}
		}

		out.WriteString(fn(groups))
		last = loc[1]
	}

	out.WriteString(src[last:])

	return out.String()
}
