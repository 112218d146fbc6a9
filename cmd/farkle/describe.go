package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/nihei9/farkle/format"
	spec "github.com/nihei9/farkle/spec/grammar"
	"github.com/spf13/cobra"
)

var describeFlags = struct {
	debug  *bool
	states *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "describe <grammar file path>",
		Short:   "Print a grammar file in readable format",
		Example: `  farkle describe grammar.egtn`,
		Args:    cobra.ExactArgs(1),
		RunE:    runDescribe,
	}
	describeFlags.debug = cmd.Flags().BoolP("debug", "d", false, "enable logging")
	describeFlags.states = cmd.Flags().BoolP("states", "s", true, "print the states of the state machines")
	rootCmd.AddCommand(cmd)
}

func runDescribe(cmd *cobra.Command, args []string) (retErr error) {
	var opts []format.LoadOption
	if *describeFlags.debug {
		w, done, err := openLog("describe")
		if err != nil {
			return err
		}
		defer func() {
			done(retErr)
		}()
		opts = append(opts, format.EnableLogging(w))
	}

	g, err := format.LoadFile(args[0], opts...)
	if err != nil {
		return err
	}

	return writeDescription(os.Stdout, g, *describeFlags.states)
}

const descTemplate = `# Grammar

Name: {{ if .Name }}{{ .Name }}{{ else }}-{{ end }}
Start symbol: {{ printStartSymbol }}
Parsable: {{ if .Unparsable }}no{{ else }}yes{{ end }}
{{- if .HasUnknownData }}
Note: the file contains data this version doesn't understand. It was skipped.
{{- end }}

# Token Symbols

{{ range $i, $s := .TokenSymbols -}}
{{ printTokenSymbol $i $s }}
{{ end }}
# Nonterminals

{{ range $i, $n := .Nonterminals -}}
{{ printNonterminal $i $n }}
{{ end }}
# Productions

{{ range $i, $p := .Productions -}}
{{ printProduction $i $p }}
{{ end }}
# Groups

{{ range $i, $gr := .Groups -}}
{{ printGroup $i $gr }}
{{ end }}
# Special Names

{{ range .SpecialNames -}}
{{ printSpecialName . }}
{{ end }}
# State Machines

{{ range .StateMachines -}}
{{ printStateMachine . }}
{{ end -}}
{{ if withStates -}}
{{ range .StateMachines -}}
{{ printStates . }}
{{- end }}
{{- end }}`

func writeDescription(w io.Writer, g *spec.Grammar, withStates bool) error {
	termName := func(id spec.TokenSymbolID) string {
		if s, ok := g.TokenSymbol(id); ok {
			return s.Name
		}
		return fmt.Sprintf("<undefined token symbol %v>", id)
	}

	fns := template.FuncMap{
		"printStartSymbol": func() string {
			if g.StartSymbol.IsNil() {
				return "-"
			}
			return g.SymbolName(spec.NonterminalSymbol(g.StartSymbol))
		},
		"printTokenSymbol": func(i int, s *spec.TokenSymbol) string {
			return fmt.Sprintf("%4v %v (%v)", i+1, s.Name, s.Flags)
		},
		"printNonterminal": func(i int, n *spec.Nonterminal) string {
			return fmt.Sprintf("%4v %v (%v)", i+1, n.Name, n.Flags)
		},
		"printProduction": func(i int, p *spec.Production) string {
			var b strings.Builder
			fmt.Fprintf(&b, "%v →", g.SymbolName(spec.NonterminalSymbol(p.Head)))
			if len(p.Members) > 0 {
				for _, m := range p.Members {
					fmt.Fprintf(&b, " %v", g.SymbolName(m))
				}
			} else {
				fmt.Fprintf(&b, " ε")
			}
			return fmt.Sprintf("%4v %v", i+1, b.String())
		},
		"printGroup": func(i int, gr *spec.Group) string {
			end := "end of input"
			if !gr.End.IsNil() {
				end = termName(gr.End)
			}
			var nesting []string
			for _, id := range gr.Nesting {
				if n, ok := g.Group(id); ok {
					nesting = append(nesting, n.Name)
				}
			}
			nested := "-"
			if len(nesting) > 0 {
				nested = strings.Join(nesting, ", ")
			}
			return fmt.Sprintf("%4v %v: %v ... %v as %v (%v) nesting: %v", i+1, gr.Name, termName(gr.Start), end, termName(gr.Container), gr.Flags, nested)
		},
		"printSpecialName": func(sn *spec.SpecialName) string {
			return fmt.Sprintf("%v → %v", sn.Name, g.SymbolName(sn.Symbol))
		},
		"printStateMachine": func(m spec.StateMachine) string {
			switch m := m.(type) {
			case *spec.DFA:
				return fmt.Sprintf("%v: %v states", m.Kind(), len(m.States))
			case *spec.DefaultTransitions:
				return fmt.Sprintf("%v: %v states", m.Kind(), len(m.Targets))
			case *spec.LR:
				return fmt.Sprintf("%v: %v states", m.Kind(), len(m.States))
			case *spec.UnknownStateMachine:
				return fmt.Sprintf("%v: %v bytes", m.Kind(), len(m.Data))
			}
			return m.Kind().String()
		},
		"printStates": func(m spec.StateMachine) string {
			var b strings.Builder
			switch m := m.(type) {
			case *spec.DFA:
				fmt.Fprintf(&b, "\n# %v\n", m.Kind())
				for s, st := range m.States {
					fmt.Fprintf(&b, "\n## State %v\n\n", s)
					for _, e := range st.Edges {
						if e.Stop {
							fmt.Fprintf(&b, "stop      on %v\n", printCharRange(e.From, e.To))
							continue
						}
						fmt.Fprintf(&b, "goto %4v on %v\n", e.Target, printCharRange(e.From, e.To))
					}
					for _, a := range st.Accept {
						fmt.Fprintf(&b, "accept %v\n", termName(a))
					}
				}
			case *spec.LR:
				fmt.Fprintf(&b, "\n# %v\n", m.Kind())
				for s, st := range m.States {
					fmt.Fprintf(&b, "\n## State %v\n\n", s)
					for _, a := range st.Actions {
						fmt.Fprintf(&b, "%-11v on %v\n", a.Action, termName(a.Terminal))
					}
					for _, a := range st.EOFActions {
						fmt.Fprintf(&b, "%-11v on EOF\n", a)
					}
					for _, gt := range st.Gotos {
						fmt.Fprintf(&b, "goto %6v on %v\n", gt.State, g.SymbolName(spec.NonterminalSymbol(gt.Nonterminal)))
					}
				}
			}
			return b.String()
		},
		"withStates": func() bool {
			return withStates
		},
	}

	tmpl, err := template.New("").Funcs(fns).Parse(descTemplate)
	if err != nil {
		return err
	}

	err = tmpl.Execute(w, g)
	if err != nil {
		return err
	}

	return nil
}

func printCharRange(from, to rune) string {
	if from == to {
		return printChar(from)
	}
	return fmt.Sprintf("%v-%v", printChar(from), printChar(to))
}

func printChar(c rune) string {
	if c >= 0x21 && c <= 0x7e {
		return fmt.Sprintf("'%c'", c)
	}
	return fmt.Sprintf("%U", c)
}
