package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/askdb/askdb/internal/metadata"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/query"
)

const prompt = "askdb> "

type Asker interface {
	Ask(ctx context.Context, question string) (pipeline.Answer, error)
	Tables() []metadata.TableDescriptor
}

type Session struct {
	asker   Asker
	history *History
	in      io.Reader
	out     io.Writer
}

func NewSession(asker Asker, history *History, in io.Reader, out io.Writer) *Session {
	if history == nil {
		history = NewHistory(0)
	}
	return &Session{asker: asker, history: history, in: in, out: out}
}

// Run reads one question per line until :quit, end of input or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	fmt.Fprintln(s.out, "Ask a question about your data. Type :help for commands.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case ":quit", ":exit", ":q":
			return nil
		case ":help":
			s.printHelp()
		case ":history":
			s.printHistory()
		case ":clear":
			s.history.Clear()
			fmt.Fprintln(s.out, "History cleared.")
		case ":tables":
			PrintTables(s.out, s.asker.Tables())
		default:
			s.ask(ctx, line)
		}
	}
}

func (s *Session) ask(ctx context.Context, question string) {
	result, err := s.asker.Ask(ctx, question)
	turn := Turn{Question: question, SQL: result.SQL, Answer: result.Text}
	if result.SQL != "" {
		fmt.Fprintf(s.out, "SQL: %s\n", result.SQL)
	}
	if err != nil {
		turn.Error = err.Error()
		fmt.Fprintln(s.out, FormatError(err))
	} else {
		fmt.Fprintln(s.out, result.Text)
	}
	s.history.Add(turn)
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  :tables   list known tables")
	fmt.Fprintln(s.out, "  :history  show previous questions")
	fmt.Fprintln(s.out, "  :clear    forget previous questions")
	fmt.Fprintln(s.out, "  :quit     leave the session")
}

func (s *Session) printHistory() {
	turns := s.history.Turns()
	if len(turns) == 0 {
		fmt.Fprintln(s.out, "No questions yet.")
		return
	}
	for i, turn := range turns {
		fmt.Fprintf(s.out, "%d. [%s] %s\n", i+1, turn.At.Format("15:04:05"), turn.Question)
		if turn.SQL != "" {
			fmt.Fprintf(s.out, "   SQL: %s\n", turn.SQL)
		}
		if turn.Error != "" {
			fmt.Fprintf(s.out, "   Error: %s\n", turn.Error)
		}
	}
}

// FormatError renders a pipeline failure the way the chat front end shows it.
func FormatError(err error) string {
	var execErr *query.ExecutionError
	if errors.As(err, &execErr) {
		return "DB Error: " + err.Error()
	}
	return "Error: " + err.Error()
}

func PrintTables(w io.Writer, tables []metadata.TableDescriptor) {
	if len(tables) == 0 {
		fmt.Fprintln(w, "No tables loaded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tCOLUMNS\tDESCRIPTION")
	for _, table := range tables {
		columns := make([]string, 0, len(table.Columns))
		for _, column := range table.Columns {
			columns = append(columns, column.Name)
		}
		name := table.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, strings.Join(columns, ", "), table.Description)
	}
	_ = tw.Flush()
}
