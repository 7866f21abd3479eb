package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	fcolor "github.com/fatih/color"

	"github.com/shaiso/Provisioner/internal/domain"
)

// failedOutputLines — сколько последних строк вывода упавшего шага
// повторяется в итоге run.
const failedOutputLines = 20

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	color    bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
// Цвет включён, если stdout — терминал и NO_COLOR не задан.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		color:    !jsonMode && !fcolor.NoColor,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
//
// Раскрашенные ячейки должны стоять в последней колонке:
// tabwriter считает escape-последовательности частью ширины.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, o.paint(fcolor.FgGreen, msg))
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, o.paint(fcolor.FgRed, "Error: "+msg))
}

// Status возвращает статус, раскрашенный по исходу.
func (o *Output) Status(status string) string {
	switch status {
	case string(domain.StepStatusSucceeded):
		return o.paint(fcolor.FgGreen, status)
	case string(domain.StepStatusFailed):
		return o.paint(fcolor.FgRed, status)
	case string(domain.StepStatusSkipped):
		return o.paint(fcolor.FgHiBlack, status)
	case string(domain.StepStatusRunning):
		return o.paint(fcolor.FgCyan, status)
	default:
		return status
	}
}

func (o *Output) paint(attr fcolor.Attribute, s string) string {
	if !o.color {
		return s
	}
	c := fcolor.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

// Summary выводит итог run: таблицу шагов и строку результата.
// Для упавшего run повторяет хвост вывода упавшего шага в stderr.
func (o *Output) Summary(run *domain.Run) {
	if o.jsonMode {
		o.JSON(run)
		return
	}

	o.Steps(run.Steps)

	if run.Status == domain.RunStatusSucceeded {
		o.Success(fmt.Sprintf("provisioning succeeded in %s", formatDuration(run.Duration())))
		return
	}

	failed := run.Step(run.FailedStep)
	if failed == nil {
		o.Error(run.Error)
		return
	}
	if out := lastLines(failed.Output, failedOutputLines); out != "" {
		fmt.Fprintf(o.errW, "--- last output of step %d (%s) ---\n%s\n", failed.Index, failed.Name, out)
	}
	o.Error(fmt.Sprintf("step %d (%s) failed with exit code %d", failed.Index, failed.Name, run.ExitCode))
}

// Steps выводит таблицу результатов шагов.
func (o *Output) Steps(steps []domain.StepResult) {
	headers := []string{"#", "STEP", "EXIT", "DURATION", "STATUS"}
	rows := make([][]string, len(steps))
	for i, s := range steps {
		exit := "-"
		if s.Status == domain.StepStatusSucceeded || s.Status == domain.StepStatusFailed {
			exit = strconv.Itoa(s.ExitCode)
		}
		rows[i] = []string{
			strconv.Itoa(s.Index),
			s.Name,
			exit,
			formatDuration(s.Duration()),
			o.Status(string(s.Status)),
		}
	}
	o.Table(headers, rows)
}

// formatDuration округляет длительность для таблиц. 0 выводится как "-".
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// lastLines возвращает не более n последних строк.
func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
