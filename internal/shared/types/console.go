package types

// ConsoleInterface define a interface para saída no console.
type ConsoleInterface interface {
	Logger

	Print(a ...interface{})
	Printf(format string, a ...interface{})
	Println(a ...interface{})

	LogSuccess(msg string, kv ...any)

	Status(message string) StatusHandle

	CreateTable() TableInterface
	Panel(title, content string) string
}

// StatusHandle é uma interface para atualizar uma mensagem de status.
type StatusHandle interface {
	Update(message string)
	Stop()
}

// TableInterface define a interface para criar e manipular tabelas.
type TableInterface interface {
	AddColumn(name string, options ...interface{})
	AddRow(cells ...interface{})
	Render() string
}
