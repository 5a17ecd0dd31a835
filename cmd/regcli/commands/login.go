package commands

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"utregister/lib/registrar/cookies"
	"utregister/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

// promptLogin asks for the cookie header of a browser that already went
// through the login flow.
func promptLogin(ctx context.Context, origin *url.URL, current []cookies.Cookie) ([]cookies.Cookie, error) {
	fmt.Fprintf(os.Stderr, "Log in to %s in a browser, then paste the request's Cookie header:\n> ", origin.String())

	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			errs <- err
			return
		}
		lines <- line
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errs:
		return nil, err
	case line := <-lines:
		parsed := cookies.ParseHeader(strings.TrimPrefix(strings.Trim(line, " \t\r\n"), "Cookie: "))
		if len(parsed) == 0 {
			return nil, fmt.Errorf("no cookies in %q", line)
		}
		return parsed, nil
	}
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Replaces the stored cookies with the ones of a logged in browser.",
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd.Context())
		defer e.Close()

		err := e.Session.Login(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to login", err)
		}
		fmt.Printf("Stored %d cookies in %s.\n", e.Session.Jar.Len(), e.Config.CookieFile)
	},
}
