package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vidgrab/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the mirror API credential",
	Long: `Manage the stored mirror API key used by the alternate Instagram backend.

The credential is stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - VIDGRAB_MIRROR_API_KEY environment variable (read-only)`,
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the mirror API key securely",
	Long: `Store the mirror API key in the system keychain or an encrypted file.
The key is read from stdin without echoing.`,
	Example: `  vidgrab auth set`,
	Run:     runAuthSet,
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored credential (masked)",
	Run:   runAuthShow,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the stored credential",
	Run:   runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authShowCmd)
	authCmd.AddCommand(authRemoveCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize credential manager:", err)
		os.Exit(1)
	}

	if manager.Exists(auth.CredentialName) {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("A mirror API key is already stored. Replace it? (y/N): ")
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("Mirror API key (hidden as you type): ")
	key, err := readPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to read API key:", err)
		os.Exit(1)
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "API key must not be empty")
		os.Exit(1)
	}

	cred := &auth.Credential{
		Name: auth.CredentialName,
		Key:  key,
	}
	if err := manager.Store(cred); err != nil {
		fmt.Fprintln(os.Stderr, "failed to store credential:", err)
		os.Exit(1)
	}

	fmt.Println("Credential stored.")
	fmt.Println("\nEnable the mirror backend with:")
	fmt.Println("  VIDGRAB_INSTAGRAM_VARIANT=mirror vidgrab serve")
}

func runAuthShow(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize credential manager:", err)
		os.Exit(1)
	}

	cred, err := manager.Retrieve(auth.CredentialName)
	if err != nil {
		fmt.Println("No credential stored. Use 'vidgrab auth set' to add one.")
		return
	}

	masked := cred.Masked()
	fmt.Printf("Name: %s\n", masked.Name)
	fmt.Printf("Key:  %s\n", masked.Key)
	if !masked.LastModified.IsZero() {
		fmt.Printf("Last modified: %s\n", masked.LastModified.Format("2006-01-02 15:04:05"))
	}
}

func runAuthRemove(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize credential manager:", err)
		os.Exit(1)
	}

	if err := manager.Delete(auth.CredentialName); err != nil {
		fmt.Fprintln(os.Stderr, "failed to remove credential:", err)
		os.Exit(1)
	}
	fmt.Println("Credential removed.")
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
