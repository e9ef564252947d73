// Package cli holds helpers shared by the idp commands: output formatting,
// typed command errors and signal handling.
//
//	format, err := cli.ParseFormat(flagValue)
//	if err != nil {
//	    return err
//	}
//	return cli.NewFormatter(format).FormatTo(os.Stdout, result)
package cli
