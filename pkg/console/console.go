package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

// Options configures the Console logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Writer io.Writer
}

// Console é uma implementação do ConsoleInterface.
type Console struct {
	logger *pterm.Logger
	out    io.Writer
}

// NewConsole cria um novo Console.
func NewConsole(opts Options) *Console {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	logger := pterm.DefaultLogger.
		WithLevel(parseLevel(opts.Level)).
		WithWriter(w).
		WithTime(true)

	if strings.EqualFold(opts.Format, "text") {
		logger = logger.WithFormatter(pterm.LogFormatterColorful)
	} else {
		logger = logger.WithFormatter(pterm.LogFormatterJSON)
	}

	return &Console{logger: logger, out: w}
}

func parseLevel(level string) pterm.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	default:
		return pterm.LogLevelInfo
	}
}

// Print imprime no console.
func (c *Console) Print(a ...interface{}) {
	fmt.Fprint(c.out, a...)
}

// Printf imprime uma string formatada no console.
func (c *Console) Printf(format string, a ...interface{}) {
	fmt.Fprintf(c.out, format, a...)
}

// Println imprime no console com uma nova linha.
func (c *Console) Println(a ...interface{}) {
	fmt.Fprintln(c.out, a...)
}

// Debug registra uma mensagem de depuração.
func (c *Console) Debug(msg string, kv ...any) {
	c.logger.Debug(msg, c.logger.Args(kv...))
}

// Info registra uma mensagem de informação.
func (c *Console) Info(msg string, kv ...any) {
	c.logger.Info(msg, c.logger.Args(kv...))
}

// Warn registra uma mensagem de aviso.
func (c *Console) Warn(msg string, kv ...any) {
	c.logger.Warn(msg, c.logger.Args(kv...))
}

// Error registra uma mensagem de erro.
func (c *Console) Error(msg string, kv ...any) {
	c.logger.Error(msg, c.logger.Args(kv...))
}

// LogSuccess registra uma mensagem de sucesso.
func (c *Console) LogSuccess(msg string, kv ...any) {
	c.logger.Info(msg, c.logger.Args(append([]any{"result", "success"}, kv...)...))
}

// statusHandle é uma implementação do StatusHandle.
type statusHandle struct {
	spinner *pterm.SpinnerPrinter
}

// Status cria um spinner de status com a mensagem especificada.
func (c *Console) Status(message string) types.StatusHandle {
	spinner, _ := pterm.DefaultSpinner.WithWriter(c.out).Start(message)
	return &statusHandle{spinner: spinner}
}

// Update atualiza a mensagem de status.
func (h *statusHandle) Update(message string) {
	if h.spinner != nil {
		h.spinner.UpdateText(message)
	}
}

// Stop pára o spinner de status.
func (h *statusHandle) Stop() {
	if h.spinner != nil {
		_ = h.spinner.Stop()
	}
}

// Cores predefinidas para uso consistente
var (
	BoldRed     = color.New(color.FgRed, color.Bold).SprintFunc()
	BrightGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	BrightCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// Table é uma implementação do TableInterface.
type Table struct {
	columns []string
	rows    [][]string
}

// CreateTable cria uma nova tabela.
func (c *Console) CreateTable() types.TableInterface {
	return &Table{
		columns: []string{},
		rows:    [][]string{},
	}
}

// AddColumn adiciona uma coluna à tabela.
func (t *Table) AddColumn(name string, options ...interface{}) {
	t.columns = append(t.columns, name)
}

// AddRow adiciona uma linha à tabela.
func (t *Table) AddRow(cells ...interface{}) {
	processedCells := make([]string, len(cells))
	for i, cell := range cells {
		processedCells[i] = fmt.Sprint(cell)
	}
	t.rows = append(t.rows, processedCells)
}

// Render renderiza a tabela como uma string.
func (t *Table) Render() string {
	tableData := pterm.TableData{t.columns}
	for _, row := range t.rows {
		tableData = append(tableData, row)
	}

	table := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(tableData)

	renderedTable, _ := table.Srender()
	return renderedTable
}

// Panel desenha uma caixa com título em volta do conteúdo.
func (c *Console) Panel(title, content string) string {
	return pterm.DefaultBox.
		WithTitle(title).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).
		Sprint(content)
}
