// Command mavenctl is a terminal front end for the Maven tax assistant
// backend: sign in, chat with the assistant, upload documents, and manage the
// document library.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/maventax/maven-client/internal/api"
	"github.com/maventax/maven-client/internal/config"
	"github.com/maventax/maven-client/internal/controllers"
	"github.com/maventax/maven-client/internal/observability"
	"github.com/maventax/maven-client/internal/session"
	"github.com/maventax/maven-client/internal/statestore"
	"github.com/maventax/maven-client/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}
	defer func() { _ = shutdown(context.Background()) }()

	db, err := statestore.Open(cfg.StatePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StatePath).Msg("state database unavailable")
	}
	persist := statestore.NewStore(db)

	// The session store is both the token source and the 401 hook of the
	// client, so wiring happens in two steps.
	sess := session.NewStore(nil, persist, log.Logger)
	client := api.New(api.Options{
		BaseURL:      cfg.APIBaseURL,
		HTTPClient:   &http.Client{Timeout: cfg.RequestTimeout},
		UploadClient: &http.Client{Timeout: cfg.UploadTimeout},
		Tokens:       sess,
		OnAuthError:  sess.Invalidate,
		RateRPS:      cfg.RateRPS,
		RateBurst:    cfg.RateBurst,
		Logger:       log.Logger,
	})
	sess.Bind(client)

	if sess.Restore(ctx) {
		if u := sess.User(); u != nil {
			fmt.Printf("Welcome back, %s.\n", sysutil.FirstNonEmpty(u.FirstName, u.Username))
		}
	}

	app := &app{
		cfg:        cfg,
		client:     client,
		sess:       sess,
		ingest:     controllers.NewIngestionController(client, cfg.UploadMaxBytes, cfg.BannerTTL, log.Logger),
		collection: controllers.NewCollectionController(client, cfg.PageSize, log.Logger),
	}
	app.repl(ctx)
}

type app struct {
	cfg        config.Config
	client     *api.Client
	sess       *session.Store
	conv       *controllers.ConversationController
	ingest     *controllers.IngestionController
	collection *controllers.CollectionController
}

func (a *app) repl(ctx context.Context) {
	fmt.Println(`Maven tax assistant. Type "help" for commands.`)
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() || ctx.Err() != nil {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "help":
			a.help()
		case "login":
			a.login(ctx)
		case "register":
			a.register(ctx)
		case "logout":
			a.sess.EndSession(ctx)
			a.conv = nil
			fmt.Println("Signed out.")
		case "whoami":
			if u := a.sess.User(); u != nil {
				fmt.Printf("%s <%s>\n", u.Username, u.Email)
			} else {
				fmt.Println("Not signed in.")
			}
		case "chat":
			a.chat(ctx, arg)
		case "upload":
			a.upload(ctx, arg)
		case "docs":
			a.docs(ctx, arg)
		case "select":
			a.selectDocs(arg)
		case "delete":
			a.deleteSelected(ctx)
		case "stats":
			a.stats(ctx)
		case "quit", "exit":
			return
		default:
			fmt.Printf("Unknown command %q. Type \"help\".\n", cmd)
		}
	}
}

func (a *app) help() {
	fmt.Print(`Commands:
  login                 sign in
  register              create an account
  logout                sign out
  whoami                show the signed-in user
  chat <message>        ask the assistant
  upload <path>         upload a document
  docs [page|search q|type t|period p]
                        browse the document library
  select <id|all|none>  manage the library selection
  delete                delete the selected documents
  stats                 show document counts
  quit                  exit
`)
}

func (a *app) login(ctx context.Context) {
	creds := api.Credentials{
		Username: prompt("Username: "),
		Password: prompt("Password: "),
	}
	u, err := a.sess.Login(ctx, creds)
	if err != nil {
		printErr(err)
		return
	}
	a.conv = nil
	fmt.Printf("Signed in as %s.\n", u.Username)
}

func (a *app) register(ctx context.Context) {
	reg := api.Registration{
		Username:  prompt("Username: "),
		Email:     prompt("Email: "),
		Password:  prompt("Password: "),
		FirstName: prompt("First name (optional): "),
		LastName:  prompt("Last name (optional): "),
	}
	u, err := a.sess.Register(ctx, reg)
	if err != nil {
		printErr(err)
		return
	}
	fmt.Printf("Account created. Signed in as %s.\n", u.Username)
}

func (a *app) chat(ctx context.Context, text string) {
	if !a.requireSession() {
		return
	}
	if a.conv == nil {
		a.conv = controllers.NewConversationController(a.client, a.sess.User(), log.Logger)
		greeting := a.conv.Snapshot().Messages[0]
		fmt.Println("maven:", greeting.Content)
	}
	reply, err := a.conv.Send(ctx, text)
	if err != nil {
		if errors.Is(err, controllers.ErrEmptyMessage) {
			fmt.Println("Usage: chat <message>")
			return
		}
		printErr(err)
		return
	}
	fmt.Println("maven:", reply.Content)
	for _, src := range reply.LegalSources {
		fmt.Printf("  [%s] %s\n", src.Reference, src.Title)
	}
}

func (a *app) upload(ctx context.Context, path string) {
	if !a.requireSession() {
		return
	}
	if path == "" {
		fmt.Println("Usage: upload <path>")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		fmt.Println(err)
		return
	}

	name := filepath.Base(path)
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if err := a.ingest.SelectFile(name, mimeType, info.Size()); err != nil {
		fmt.Println(a.ingest.Banner())
		a.ingest.Reset()
		return
	}
	sel := a.ingest.Selection()
	fmt.Printf("Uploading %s (%s) as %s...\n",
		name, sysutil.FormatBytes(info.Size()), controllers.DocumentTypeLabel(sel.DocumentType))

	id, err := a.ingest.Upload(ctx, f)
	if err != nil {
		fmt.Println(a.ingest.Banner())
		a.ingest.Reset()
		return
	}
	fmt.Printf("Accepted as document %d. Compliance score: %d.\n", id, a.ingest.ComplianceScore())
}

func (a *app) docs(ctx context.Context, arg string) {
	if !a.requireSession() {
		return
	}
	switch key, val, _ := strings.Cut(arg, " "); key {
	case "search":
		a.collection.SetSearch(val)
	case "type":
		a.collection.SetType(val)
	case "period":
		a.collection.SetTimePeriod(val)
	case "":
	default:
		if n, err := strconv.Atoi(key); err == nil {
			a.collection.SetPage(n)
		} else {
			fmt.Println("Usage: docs [page|search q|type t|period p]")
			return
		}
	}
	if err := a.collection.Refresh(ctx); err != nil {
		printErr(err)
		return
	}
	snap := a.collection.Snapshot()
	if len(snap.Documents) == 0 {
		fmt.Println("No documents.")
		return
	}
	selected := make(map[int64]bool, len(snap.Selected))
	for _, id := range snap.Selected {
		selected[id] = true
	}
	for _, d := range snap.Documents {
		mark := " "
		if selected[d.ID] {
			mark = "*"
		}
		fmt.Printf("%s %4d  %-30s %-20s %s\n",
			mark, d.ID, d.OriginalFilename, controllers.DocumentTypeLabel(d.DocumentType), d.Status)
	}
	fmt.Printf("Page %d of %d (%d documents).\n", snap.Page, snap.TotalPages, snap.Count)
}

func (a *app) selectDocs(arg string) {
	switch arg {
	case "all":
		a.collection.SelectAll()
	case "none":
		a.collection.ClearSelection()
	default:
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Println("Usage: select <id|all|none>")
			return
		}
		a.collection.ToggleSelect(id)
	}
	fmt.Printf("%d selected.\n", len(a.collection.SelectedIDs()))
}

func (a *app) deleteSelected(ctx context.Context) {
	if !a.requireSession() {
		return
	}
	err := a.collection.BulkDelete(ctx, func(n int) bool {
		answer := prompt(fmt.Sprintf("Delete %d document(s)? [y/N] ", n))
		return sysutil.IsTruthy(answer)
	})
	switch {
	case errors.Is(err, controllers.ErrNothingSelected):
		fmt.Println("Nothing selected.")
	case errors.Is(err, controllers.ErrConfirmationDeclined):
		fmt.Println("Cancelled.")
	case err != nil:
		printErr(err)
	default:
		fmt.Println("Deleted.")
	}
}

func (a *app) stats(ctx context.Context) {
	if !a.requireSession() {
		return
	}
	if err := a.collection.RefreshStats(ctx); err != nil {
		printErr(err)
		return
	}
	if s := a.collection.Snapshot().Stats; s != nil {
		fmt.Printf("%d documents, %d processed.\n", s.TotalDocuments, s.ProcessedDocuments)
	}
}

func (a *app) requireSession() bool {
	if a.sess.IsAuthenticated() {
		return true
	}
	fmt.Println(`Sign in first ("login").`)
	return false
}

func prompt(label string) string {
	fmt.Print(label)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return ""
	}
	return strings.TrimSpace(sc.Text())
}

func printErr(err error) {
	var ae *api.Error
	if errors.As(err, &ae) {
		fmt.Println(ae.UserMessage())
		return
	}
	fmt.Println(err)
}
