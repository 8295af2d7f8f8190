// Portal command-line client.
//
// Talks to a portal catalog server: authentication with persisted
// sessions and automatic token renewal, duplicate-checked uploads,
// hash-verified downloads with a local content cache.
//
// Sub-commands:
//
//	portal login [flags]              Log in with email/password
//	portal register [flags]           Create an account
//	portal logout                     Log out and clear the saved session
//	portal status                     Show session and cache state
//	portal reset-request <email>      Request a password reset
//	portal reset-confirm <token>      Set a new password with a reset token
//	portal oauth-login                Print the OAuth2 authorization URL
//	portal oauth-callback <url>       Complete an OAuth2 login from the callback URL
//	portal list [flags]               List catalog packages
//	portal show <id>                  Show one package
//	portal stats                      Show download statistics
//	portal upload [flags] <file>      Upload a package
//	portal download [flags] <id>      Download a package
//	portal delete <id>                Delete a package (admin)
//	portal change-password            Change the account password
//	portal cache [clear]              Inspect or clear the download cache
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/fccur/portal/internal/config"
	"github.com/fccur/portal/internal/logging"
	"github.com/fccur/portal/pkg/authflow"
	"github.com/fccur/portal/pkg/cache"
	"github.com/fccur/portal/pkg/client"
	"github.com/fccur/portal/pkg/hash"
	"github.com/fccur/portal/pkg/protocol"
	"github.com/fccur/portal/pkg/session"
	"github.com/fccur/portal/pkg/upload"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "login":
		cmdLogin(os.Args[2:])
	case "register":
		cmdRegister(os.Args[2:])
	case "logout":
		cmdLogout(os.Args[2:])
	case "status":
		cmdStatus(os.Args[2:])
	case "reset-request":
		cmdResetRequest(os.Args[2:])
	case "reset-confirm":
		cmdResetConfirm(os.Args[2:])
	case "oauth-login":
		cmdOAuthLogin(os.Args[2:])
	case "oauth-callback":
		cmdOAuthCallback(os.Args[2:])
	case "list":
		cmdList(os.Args[2:])
	case "show":
		cmdShow(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "upload":
		cmdUpload(os.Args[2:])
	case "download":
		cmdDownload(os.Args[2:])
	case "delete":
		cmdDelete(os.Args[2:])
	case "change-password":
		cmdChangePassword(os.Args[2:])
	case "cache":
		cmdCache(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: portal <command> [flags]

Commands:
  login             Log in with email/password
  register          Create an account
  logout            Log out and clear the saved session
  status            Show session and cache state
  reset-request     Request a password reset email
  reset-confirm     Set a new password with a reset token
  oauth-login       Print the OAuth2 authorization URL
  oauth-callback    Complete an OAuth2 login from the callback URL
  list              List catalog packages
  show              Show one package
  stats             Show download statistics
  upload            Upload a package (duplicate-checked)
  download          Download a package (cached, hash-verified)
  delete            Delete a package (admin)
  change-password   Change the account password
  cache             Inspect or clear the download cache

Run 'portal <command> -h' for command flags.`)
}

// app wires the config, client and session manager shared by every
// sub-command.
type app struct {
	cfg      *config.Config
	client   *client.Client
	sessions *session.Manager
}

func newApp(serverOverride string) *app {
	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}
	if serverOverride != "" {
		cfg.ServerURL = serverOverride
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fatal("init logging: %v", err)
	}

	prefs, err := cfg.LoadPrefs()
	if err != nil {
		fatal("load preferences: %v", err)
	}

	c := client.New(client.Config{
		BaseURL:  strings.TrimSuffix(cfg.ServerURL, "/"),
		ClientID: prefs.ClientID,
	})

	mgr := session.NewManager(session.Config{
		Store:   session.NewFileStore(cfg.SessionPath()),
		Refresh: c.Refresh,
		OnForcedLogout: func() {
			fmt.Fprintln(os.Stderr, "Session expired and could not be renewed. Run 'portal login'.")
		},
	})
	if err := mgr.Restore(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not restore session: %v\n", err)
	}
	if s := mgr.Current(); s != nil {
		c.SetAuthToken(s.AccessToken)
	}

	return &app{cfg: cfg, client: c, sessions: mgr}
}

func (a *app) requireLogin() {
	if !a.sessions.IsLoggedIn() {
		fatal("not logged in. Run 'portal login' first.")
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func promptLine(label string) string {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(label string) string {
	fmt.Print(label)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fatal("read password: %v", err)
	}
	return string(b)
}

func confirmPrompt(label string) bool {
	answer := promptLine(label + " [y/N]: ")
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

func cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	email := fs.String("email", "", "Account email (prompted if empty)")
	remember := fs.Bool("remember", true, "Request a long-lived session")
	fs.Parse(args)

	a := newApp(*serverURL)
	defer logging.Sync()

	if *email == "" {
		*email = promptLine("Email: ")
	}
	password := promptPassword("Password: ")

	runner := &authflow.Runner{Client: a.client, Sessions: a.sessions}
	user, err := runner.Login(context.Background(), *email, password, *remember)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Logged in as %s. Session saved.\n", user.Email)
}

func cmdRegister(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	email := fs.String("email", "", "Account email (prompted if empty)")
	fullName := fs.String("name", "", "Full name")
	fs.Parse(args)

	a := newApp(*serverURL)
	defer logging.Sync()

	if *email == "" {
		*email = promptLine("Email: ")
	}
	if *fullName == "" {
		*fullName = promptLine("Full name: ")
	}
	password := promptPassword("Password: ")
	confirm := promptPassword("Confirm password: ")

	runner := &authflow.Runner{Client: a.client, Sessions: a.sessions}
	user, err := runner.Register(context.Background(), *email, *fullName, password, confirm)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Account created. Logged in as %s.\n", user.Email)
}

func cmdLogout(args []string) {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	fs.Parse(args)

	a := newApp(*serverURL)
	defer logging.Sync()

	if !a.sessions.IsLoggedIn() {
		fmt.Println("Not logged in.")
		return
	}

	// Server-side revocation is best-effort; the local session is
	// cleared regardless.
	if err := a.client.Logout(context.Background()); err != nil {
		logging.Debug("server logout failed")
	}
	if err := a.sessions.Logout(); err != nil {
		fatal("clear session: %v", err)
	}
	fmt.Println("Logged out.")
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	fs.Parse(args)

	a := newApp(*serverURL)
	defer logging.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reachable := a.client.Ping(ctx) == nil

	fmt.Printf("Server:  %s (%s)\n", a.cfg.ServerURL, onlineWord(reachable))
	fmt.Printf("Session: %s\n", a.sessions.State())

	if s := a.sessions.Current(); s != nil {
		if s.User != nil {
			fmt.Printf("User:    %s", s.User.Email)
			if s.User.IsAdmin {
				fmt.Print(" (admin)")
			}
			fmt.Println()
		}
		if exp, ok := s.TokenExpiry(); ok {
			fmt.Printf("Token:   expires %s\n", exp.Local().Format(time.RFC1123))
		}
		if a.sessions.RenewalPending() {
			fmt.Println("Renewal: scheduled")
		} else {
			fmt.Println("Renewal: none (session past its renewal window)")
		}
	}

	if cc, err := cache.Open(a.cfg.CacheDir, a.cfg.MaxCacheSize); err == nil {
		size, maxSize, count := cc.Stats()
		fmt.Printf("Cache:   %d entries, %s of %s (%s)\n",
			count, sizeWord(size), sizeWord(maxSize), a.cfg.CacheDir)
	}
}

func onlineWord(ok bool) string {
	if ok {
		return "online"
	}
	return "unreachable"
}

func sizeWord(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func cmdResetRequest(args []string) {
	fs := flag.NewFlagSet("reset-request", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	fs.Parse(args)

	a := newApp(*serverURL)
	defer logging.Sync()

	email := fs.Arg(0)
	if email == "" {
		email = promptLine("Email: ")
	}

	msg, err := a.client.RequestPasswordReset(context.Background(), email)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(msg)
}

func cmdResetConfirm(args []string) {
	fs := flag.NewFlagSet("reset-confirm", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatal("usage: portal reset-confirm <token>")
	}
	token := fs.Arg(0)

	a := newApp(*serverURL)
	defer logging.Sync()

	password := promptPassword("New password: ")
	confirm := promptPassword("Confirm new password: ")

	runner := &authflow.Runner{Client: a.client, Sessions: a.sessions}
	if err := runner.ResetPassword(context.Background(), token, password, confirm); err != nil {
		fatal("%v", err)
	}
	fmt.Println("Password updated. Run 'portal login' with the new password.")
}

func cmdOAuthLogin(args []string) {
	fs := flag.NewFlagSet("oauth-login", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	fs.Parse(args)

	a := newApp(*serverURL)
	defer logging.Sync()

	ctx := context.Background()
	runner := &authflow.Runner{Client: a.client, Sessions: a.sessions}
	if !runner.OAuthAvailable(ctx) {
		fatal("OAuth2 login is not enabled on this server")
	}

	authURL, err := a.client.OAuth2LoginURL(ctx)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println("Open this URL in a browser to authorize:")
	fmt.Println("  " + authURL)
	fmt.Println("Then run: portal oauth-callback '<redirect URL>'")
}

func cmdOAuthCallback(args []string) {
	fs := flag.NewFlagSet("oauth-callback", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatal("usage: portal oauth-callback <redirect URL>")
	}

	a := newApp(*serverURL)
	defer logging.Sync()

	route, err := authflow.Resolve(fs.Arg(0))
	if err != nil {
		fatal("%v", err)
	}

	switch route.Kind {
	case authflow.KindOAuthError:
		msg := route.ErrorCode
		if route.ErrorDescription != "" {
			msg += ": " + route.ErrorDescription
		}
		fatal("provider returned an error: %s", msg)
	case authflow.KindResetConfirm:
		fmt.Printf("This is a password-reset link. Run: portal reset-confirm %s\n", route.ResetToken)
	case authflow.KindOAuthCallback:
		runner := &authflow.Runner{Client: a.client, Sessions: a.sessions}
		user, err := runner.OAuthCallback(context.Background(), route)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Logged in as %s. Session saved.\n", user.Email)
	default:
		fmt.Println("Nothing to do for this URL.")
	}
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	sortBy := fs.String("sort", "", "Sort order: name or date (persisted as default)")
	category := fs.String("category", "", "Filter by category")
	fs.Parse(args)

	a := newApp(*serverURL)
	defer logging.Sync()

	prefs, err := a.cfg.LoadPrefs()
	if err != nil {
		fatal("load preferences: %v", err)
	}
	if *sortBy == "" {
		*sortBy = prefs.SortPreference
	} else if *sortBy != prefs.SortPreference {
		prefs.SortPreference = *sortBy
		if err := a.cfg.SavePrefs(prefs); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save sort preference: %v\n", err)
		}
	}

	pkgs, err := a.client.ListPackages(context.Background())
	if err != nil {
		fatal("%v", err)
	}

	if *category != "" {
		filtered := pkgs[:0]
		for _, p := range pkgs {
			if strings.EqualFold(p.Category, *category) {
				filtered = append(filtered, p)
			}
		}
		pkgs = filtered
	}

	switch *sortBy {
	case "name":
		sort.Slice(pkgs, func(i, j int) bool {
			return strings.ToLower(pkgs[i].Name) < strings.ToLower(pkgs[j].Name)
		})
	case "date", "":
		sort.Slice(pkgs, func(i, j int) bool {
			return pkgs[i].CreatedAt.After(pkgs[j].CreatedAt)
		})
	default:
		fatal("unknown sort order %q (want name or date)", *sortBy)
	}

	if len(pkgs) == 0 {
		fmt.Println("No packages.")
		return
	}

	fmt.Printf("%-6s %-30s %-12s %-12s %-10s %10s\n",
		"ID", "NAME", "VERSION", "CATEGORY", "TYPE", "SIZE")
	for _, p := range pkgs {
		fmt.Printf("%-6d %-30s %-12s %-12s %-10s %10s\n",
			p.ID, truncate(p.Name, 30), p.Version, p.Category, p.ContentType, sizeWord(p.FileSize))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func cmdShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	contents := fs.Bool("contents", false, "List archive contents")
	fs.Parse(args)

	id := parseID(fs, "show")
	a := newApp(*serverURL)
	defer logging.Sync()

	ctx := context.Background()
	p, err := a.client.GetPackage(ctx, id)
	if err != nil {
		fatal("%v", err)
	}

	fmt.Printf("Name:        %s\n", p.Name)
	fmt.Printf("Version:     %s\n", p.Version)
	fmt.Printf("Category:    %s\n", p.Category)
	fmt.Printf("Type:        %s\n", p.ContentType)
	if p.CourseName != "" {
		fmt.Printf("Course:      %s\n", p.CourseName)
	}
	fmt.Printf("Platform:    %s\n", p.Platform)
	fmt.Printf("Size:        %s\n", sizeWord(p.FileSize))
	fmt.Printf("BLAKE3:      %s\n", p.BLAKE3Hash)
	fmt.Printf("SHA-256:     %s\n", p.SHA256Hash)
	fmt.Printf("Uploaded:    %s\n", p.CreatedAt.Local().Format(time.RFC1123))
	if p.Description != "" {
		fmt.Printf("Description: %s\n", p.Description)
	}

	if *contents {
		entries, err := a.client.ArchiveContents(ctx, id)
		if err != nil {
			fatal("archive contents: %v", err)
		}
		fmt.Println("\nContents:")
		for _, e := range entries {
			fmt.Printf("  %10s  %s\n", sizeWord(e.Size), e.Name)
		}
	}
}

func parseID(fs *flag.FlagSet, cmd string) int64 {
	if fs.NArg() < 1 {
		fatal("usage: portal %s <id>", cmd)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		fatal("invalid package id %q", fs.Arg(0))
	}
	return id
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	fs.Parse(args)

	a := newApp(*serverURL)
	defer logging.Sync()

	stats, err := a.client.GetStats(context.Background())
	if err != nil {
		fatal("%v", err)
	}
	if len(stats) == 0 {
		fmt.Println("No downloads yet.")
		return
	}

	fmt.Printf("%-6s %-30s %10s  %s\n", "ID", "NAME", "DOWNLOADS", "LAST")
	for _, s := range stats {
		last := ""
		if !s.LastDownload.IsZero() {
			last = s.LastDownload.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("%-6d %-30s %10d  %s\n", s.PackageID, truncate(s.PackageName, 30), s.TotalDownloads, last)
	}
}

func cmdUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	name := fs.String("name", "", "Package name (required)")
	version := fs.String("version", "", "Package version (required)")
	category := fs.String("category", "", "Category (required)")
	platform := fs.String("platform", "any", "Target platform")
	contentType := fs.String("type", "tool", "Content type: tool or material")
	courseName := fs.String("course", "", "Course name (materials only)")
	description := fs.String("description", "", "Package description")
	thumbnail := fs.String("thumbnail", "", "Thumbnail image path")
	force := fs.Bool("force", false, "Upload even if identical content already exists")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatal("usage: portal upload [flags] <file>")
	}
	path := fs.Arg(0)
	if *name == "" || *version == "" || *category == "" {
		fatal("-name, -version and -category are required")
	}
	if *contentType == "material" && *courseName == "" {
		fatal("-course is required for materials")
	}

	a := newApp(*serverURL)
	defer logging.Sync()
	a.requireLogin()

	req := client.UploadRequest{
		Name:        *name,
		Version:     *version,
		Category:    *category,
		Platform:    *platform,
		ContentType: *contentType,
		CourseName:  *courseName,
		Description: *description,
	}

	if *thumbnail != "" {
		tf, err := os.Open(*thumbnail)
		if err != nil {
			fatal("open thumbnail: %v", err)
		}
		defer tf.Close()
		req.ThumbnailName = tf.Name()
		req.Thumbnail = tf
	}

	gate := &upload.Gate{
		Client: a.client,
		Confirm: func(existing *protocol.Package) (bool, error) {
			if *force {
				return true, nil
			}
			fmt.Printf("Identical content already exists: %s %s (id %d).\n",
				existing.Name, existing.Version, existing.ID)
			return confirmPrompt("Upload anyway?"), nil
		},
		HashProgress: func(n int64) {
			fmt.Fprintf(os.Stderr, "\rHashing... %s", sizeWord(n))
		},
	}

	result, err := gate.Run(context.Background(), path, req)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		if errors.Is(err, upload.ErrCancelled) {
			fmt.Println("Upload cancelled.")
			return
		}
		fatal("%v", err)
	}

	fmt.Printf("Uploaded %s %s (id %d).\n", result.Package.Name, result.Package.Version, result.Package.ID)
	fmt.Printf("BLAKE3: %s\n", result.Digest)
}

func cmdDownload(args []string) {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	output := fs.String("o", "", "Output path (default: server filename)")
	noCache := fs.Bool("no-cache", false, "Bypass the local content cache")
	fs.Parse(args)

	id := parseID(fs, "download")
	a := newApp(*serverURL)
	defer logging.Sync()

	ctx := context.Background()
	p, err := a.client.GetPackage(ctx, id)
	if err != nil {
		fatal("%v", err)
	}

	var cc *cache.Cache
	if !*noCache {
		cc, err = cache.Open(a.cfg.CacheDir, a.cfg.MaxCacheSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache unavailable: %v\n", err)
		}
	}

	dest := *output
	// Cache hit: re-verified against the digest, then copied out.
	if cc != nil && p.BLAKE3Hash != "" {
		if path, ok := cc.GetVerified(p.BLAKE3Hash); ok {
			if dest == "" {
				dest = fmt.Sprintf("%s-%s", p.Name, p.Version)
			}
			if err := copyFile(path, dest); err != nil {
				fatal("%v", err)
			}
			fmt.Printf("Downloaded %s (from cache, verified).\n", dest)
			return
		}
	}

	body, info, err := a.client.Download(ctx, id)
	if err != nil {
		fatal("%v", err)
	}
	defer body.Close()

	if dest == "" {
		dest = info.Filename
		if dest == "" {
			dest = fmt.Sprintf("%s-%s", p.Name, p.Version)
		}
	}

	// The cache verifies the stream against the digest as it writes;
	// a corrupt transfer never reaches the output file.
	if cc != nil && info.BLAKE3Hash != "" {
		cached, err := cc.Put(info.BLAKE3Hash, body, info.Size)
		if err != nil {
			fatal("download: %v", err)
		}
		if err := copyFile(cached, dest); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Downloaded %s (%s, verified).\n", dest, sizeWord(info.Size))
		return
	}

	out, err := os.Create(dest)
	if err != nil {
		fatal("%v", err)
	}
	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		fatal("download: %v", err)
	}

	if info.BLAKE3Hash != "" {
		got, err := hash.SumFile(dest, nil)
		if err != nil {
			fatal("verify: %v", err)
		}
		if got != info.BLAKE3Hash {
			os.Remove(dest)
			fatal("hash mismatch: expected %s, got %s", info.BLAKE3Hash, got)
		}
		fmt.Printf("Downloaded %s (%s, verified).\n", dest, sizeWord(n))
		return
	}
	fmt.Printf("Downloaded %s (%s).\n", dest, sizeWord(n))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func cmdDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	yes := fs.Bool("y", false, "Skip the confirmation prompt")
	fs.Parse(args)

	id := parseID(fs, "delete")
	a := newApp(*serverURL)
	defer logging.Sync()
	a.requireLogin()

	ctx := context.Background()
	p, err := a.client.GetPackage(ctx, id)
	if err != nil {
		fatal("%v", err)
	}

	if !*yes && !confirmPrompt(fmt.Sprintf("Delete %s %s (id %d)?", p.Name, p.Version, p.ID)) {
		fmt.Println("Aborted.")
		return
	}

	if err := a.client.Delete(ctx, id); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Deleted %s %s.\n", p.Name, p.Version)
}

func cmdChangePassword(args []string) {
	fs := flag.NewFlagSet("change-password", flag.ExitOnError)
	serverURL := fs.String("server", "", "Server URL (default from PORTAL_SERVER)")
	fs.Parse(args)

	a := newApp(*serverURL)
	defer logging.Sync()
	a.requireLogin()

	current := promptPassword("Current password: ")
	next := promptPassword("New password: ")
	confirm := promptPassword("Confirm new password: ")
	if next != confirm {
		fatal("passwords do not match")
	}

	if err := a.client.ChangePassword(context.Background(), current, next); err != nil {
		fatal("%v", err)
	}
	fmt.Println("Password changed.")
}

func cmdCache(args []string) {
	fs := flag.NewFlagSet("cache", flag.ExitOnError)
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}
	cc, err := cache.Open(cfg.CacheDir, cfg.MaxCacheSize)
	if err != nil {
		fatal("open cache: %v", err)
	}

	if fs.Arg(0) == "clear" {
		n := cc.Clear()
		fmt.Printf("Removed %d cached entries.\n", n)
		return
	}

	size, maxSize, count := cc.Stats()
	fmt.Printf("Cache directory: %s\n", cc.Dir())
	fmt.Printf("Entries:         %d\n", count)
	fmt.Printf("Size:            %s of %s\n", sizeWord(size), sizeWord(maxSize))

	entries := cc.List()
	if len(entries) > 0 {
		fmt.Printf("\n%-64s  %10s  %s\n", "DIGEST", "SIZE", "LAST ACCESS")
		for _, e := range entries {
			fmt.Printf("%-64s  %10s  %s\n", e.Digest, sizeWord(e.Size), e.LastAccess.Local().Format("2006-01-02 15:04"))
		}
	}
}
