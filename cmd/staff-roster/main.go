// Точка входа Staff Roster — веб-консоль и CLI для списка сотрудников.
// Без аргументов запускает веб-консоль (serve); подкоманды users
// выполняют операции над ростером из командной строки.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(newApp(os.Stdin, os.Stdout, os.Stderr)).Execute(); err != nil {
		os.Exit(1)
	}
}
