package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/tatamiya/aws-cost-notification/pkg/version"
)

// displayWelcomeBanner exibe o banner de boas-vindas com informações de versão.
func displayWelcomeBanner(w io.Writer, versionStr string) {
	banner := `
   ___            _     _  _       _   _  __ _
  / __| ___  ___ | |_  | \| | ___ | |_(_)/ _(_) ___  _ _
 | (__ / _ \(_-< |  _| | .' |/ _ \|  _| |  _| |/ -_)| '_|
  \___|\___//__/  \__| |_|\_|\___/ \__|_|_| |_|\___||_|
        `
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	fmt.Fprintln(w, red(banner))

	// Obtem a string formatada da versão através do pacote version
	fmt.Fprintln(w, blue(fmt.Sprintf("AWS Cost Notifier (v%s)", version.FormatVersion())))
}

// checkLatestVersion verifica se uma versão mais recente está disponível.
func checkLatestVersion(currentVersion string) {
	version.CheckLatestVersion(currentVersion)
}
