package logs

import "fmt"

func SetRed(s string) string     { return fmt.Sprintf("\033[31m%s\033[0m", s) }
func SetGreen(s string) string   { return fmt.Sprintf("\033[32m%s\033[0m", s) }
func SetYellow(s string) string  { return fmt.Sprintf("\033[33m%s\033[0m", s) }
func SetBlue(s string) string    { return fmt.Sprintf("\033[34m%s\033[0m", s) }
func SetMagenta(s string) string { return fmt.Sprintf("\033[35m%s\033[0m", s) }

func SetBrightBlack(s string) string { return fmt.Sprintf("\033[90m%s\033[0m", s) }

func PrintError() string { return SetRed("Error") }
func PrintWarn() string  { return SetYellow("Warning") }
