// Command tracklite is a terminal client for the tracker backend:
// login, task CRUD with due dates and tags, and start/pause/stop time
// tracking on a task.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracklite/client/domain"
	"github.com/tracklite/client/gateway/httpapi"
	"github.com/tracklite/client/internal/config"
	"github.com/tracklite/client/internal/credentials"
	"github.com/tracklite/client/internal/services"
	"github.com/tracklite/client/internal/services/lifecycle"
	"github.com/tracklite/client/mapper"
	"github.com/tracklite/client/pkg/logger"
	"github.com/tracklite/client/usecase/session"
	"github.com/tracklite/client/usecase/tags"
	"github.com/tracklite/client/usecase/tasks"
	"github.com/tracklite/client/usecase/timer"
)

const usage = `usage: tracklite <command> [flags]

commands:
  login     -email -password        authenticate and persist the session
  register  -email -password        create an account, then log in
  logout                            drop the persisted session
  whoami                            show the authenticated user
  list      [-tag] [-skip] [-limit] list tasks
  show      <id>                    fetch and show one task
  add       -title [-due] [-tags]   create a task
  done      <id>                    toggle completion
  rm        <id>                    delete a task
  timer     <start|pause|stop|save> <id>
  track     <id>                    run the timer until interrupted, then pause
  tags                              list tags
  tag-add   <name>                  create a tag
`

// app bundles the wired stores for command handlers.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	session *session.Store
	tasks   *tasks.Store
	timer   *timer.Coordinator
	tags    *tags.Store
	manager *lifecycle.Manager
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(10*time.Second, zapLogger)

	vault, err := credentials.Open(cfg.Credentials.Path)
	if err != nil {
		zapLogger.Fatal("failed to open credential store", zap.Error(err))
	}
	manager.Register("credentials", func(ctx context.Context) error {
		return vault.Close()
	})

	sessionStore := session.New(nil, vault, zapLogger)
	api := httpapi.New(cfg.API.BaseURL, sessionStore, zapLogger, httpapi.WithTimeout(cfg.API.RequestTimeout))
	sessionStore.BindGateway(api)

	m := mapper.New(zapLogger)
	taskStore := tasks.New(api, m, zapLogger)
	coordinator := timer.New(api, m, taskStore, zapLogger)
	tagStore := tags.New(api, zapLogger)

	a := &app{
		cfg:     cfg,
		logger:  zapLogger,
		session: sessionStore,
		tasks:   taskStore,
		timer:   coordinator,
		tags:    tagStore,
		manager: manager,
	}

	ctx := logger.ContextWithRequestID(context.Background(), uuid.NewString())
	runErr := dispatch(ctx, a, os.Args[1], os.Args[2:])

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("teardown error", zap.Error(err))
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "tracklite: %s\n", domain.ErrorMessage(runErr))
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, a *app, command string, args []string) error {
	switch command {
	case "login":
		return cmdLogin(ctx, a, args)
	case "register":
		return cmdRegister(ctx, a, args)
	case "logout":
		a.session.Logout()
		fmt.Println("logged out")
		return nil
	case "whoami":
		return cmdWhoami(ctx, a)
	case "list":
		return cmdList(ctx, a, args)
	case "show":
		return cmdShow(ctx, a, args)
	case "add":
		return cmdAdd(ctx, a, args)
	case "done":
		return cmdDone(ctx, a, args)
	case "rm":
		return cmdRemove(ctx, a, args)
	case "timer":
		return cmdTimer(ctx, a, args)
	case "track":
		return cmdTrack(ctx, a, args)
	case "tags":
		return cmdTags(ctx, a)
	case "tag-add":
		return cmdTagAdd(ctx, a, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return domain.NewError(domain.ErrCodeValidation, fmt.Sprintf("unknown command %q", command))
	}
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if err := a.session.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", a.session.User().Email)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (8+ characters)")
	fs.Parse(args)

	if err := a.session.Register(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Printf("registered and logged in as %s\n", a.session.User().Email)
	return nil
}

func cmdWhoami(ctx context.Context, a *app) error {
	user, err := a.session.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (id %d)\n", user.Email, user.ID)
	return nil
}

func cmdList(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	tag := fs.String("tag", "", "filter by tag name")
	skip := fs.Int("skip", 0, "offset")
	limit := fs.Int("limit", a.cfg.Tasks.PageLimit, "page size")
	fs.Parse(args)

	if err := a.tasks.Fetch(ctx, *skip, *limit, *tag); err != nil {
		return err
	}
	printTasks(a.tasks.Tasks())
	return nil
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	id, err := singleArg(args, "show")
	if err != nil {
		return err
	}
	task, err := a.tasks.Refresh(ctx, id)
	if err != nil {
		return err
	}
	printTasks([]domain.Task{*task})
	return nil
}

func cmdAdd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	title := fs.String("title", "", "task title")
	due := fs.String("due", "", "due date, YYYY-MM-DDThh:mm local time")
	tagList := fs.String("tags", "", "comma-separated tag names")
	fs.Parse(args)

	draft := domain.TaskDraft{Title: *title, DueDate: *due}
	if *tagList != "" {
		draft.Tags = strings.Split(*tagList, ",")
	}

	task, err := a.tasks.Create(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Printf("created task %s: %s\n", task.ID, task.Title)
	return nil
}

func cmdDone(ctx context.Context, a *app, args []string) error {
	id, err := singleArg(args, "done")
	if err != nil {
		return err
	}
	if _, err := a.tasks.Refresh(ctx, id); err != nil {
		return err
	}
	task, err := a.tasks.ToggleComplete(ctx, id)
	if err != nil {
		return err
	}
	state := "open"
	if task.Completed {
		state = "completed"
	}
	fmt.Printf("task %s is now %s\n", task.ID, state)
	return nil
}

func cmdRemove(ctx context.Context, a *app, args []string) error {
	id, err := singleArg(args, "rm")
	if err != nil {
		return err
	}
	if err := a.tasks.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Printf("removed task %s\n", id)
	return nil
}

func cmdTimer(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return domain.NewError(domain.ErrCodeValidation, "usage: tracklite timer <start|pause|stop|save> <id>")
	}
	action, id := args[0], args[1]

	// Timer responses fold into the collection, so it must hold the
	// task first.
	if _, err := a.tasks.Refresh(ctx, id); err != nil {
		return err
	}

	var err error
	switch action {
	case "start":
		err = a.timer.Start(ctx, id)
	case "pause":
		err = a.timer.Pause(ctx, id)
	case "stop":
		err = a.timer.Stop(ctx, id)
	case "save":
		err = a.timer.Save(ctx, id)
	default:
		return domain.NewError(domain.ErrCodeValidation, fmt.Sprintf("unknown timer action %q", action))
	}
	if err != nil {
		return err
	}

	if task, ok := a.tasks.Find(id); ok {
		fmt.Printf("task %s timer %s, recorded %s\n", task.ID, task.TimerStatus, formatSeconds(task.RecordedTime))
	}
	return nil
}

// cmdTrack starts the timer, autosaves on an interval, and pauses the
// timer when interrupted. Pausing, not stopping: stop would mark the
// task completed.
func cmdTrack(ctx context.Context, a *app, args []string) error {
	id, err := singleArg(args, "track")
	if err != nil {
		return err
	}

	if _, err := a.tasks.Refresh(ctx, id); err != nil {
		return err
	}
	if err := a.timer.Start(ctx, id); err != nil {
		return err
	}
	fmt.Printf("tracking task %s, press Ctrl-C to pause\n", id)

	if a.cfg.Autosave.Enabled {
		autosave := services.NewAutosave(a.timer, a.cfg.Autosave.Interval, a.logger)
		autosave.Start()
		defer autosave.Stop()
	}

	sigCh, stopNotify := a.manager.NotifyInterrupt()
	defer stopNotify()
	<-sigCh

	if err := a.timer.Pause(context.Background(), id); err != nil {
		return err
	}
	if task, ok := a.tasks.Find(id); ok {
		fmt.Printf("paused, recorded %s\n", formatSeconds(task.RecordedTime))
	}
	return nil
}

func cmdTags(ctx context.Context, a *app) error {
	list, err := a.tags.List(ctx, 0, 100)
	if err != nil {
		return err
	}
	for _, tag := range list {
		fmt.Printf("%d\t%s\n", tag.ID, tag.Name)
	}
	return nil
}

func cmdTagAdd(ctx context.Context, a *app, args []string) error {
	name, err := singleArg(args, "tag-add")
	if err != nil {
		return err
	}
	tag, err := a.tags.Create(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("created tag %d: %s\n", tag.ID, tag.Name)
	return nil
}

func singleArg(args []string, command string) (string, error) {
	if len(args) != 1 {
		return "", domain.NewError(domain.ErrCodeValidation, fmt.Sprintf("usage: tracklite %s <arg>", command))
	}
	return args[0], nil
}

func printTasks(list []domain.Task) {
	if len(list) == 0 {
		fmt.Println("no tasks")
		return
	}
	for _, task := range list {
		mark := " "
		if task.Completed {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] %s\t%s", mark, task.ID, task.Title)
		if task.DueDate != "" {
			line += "\tdue " + task.DueDate
		}
		if len(task.Tags) > 0 {
			line += "\t#" + strings.Join(task.Tags, " #")
		}
		if task.RecordedTime > 0 || task.TimerStatus == domain.TimerRunning {
			line += fmt.Sprintf("\t%s (%s)", formatSeconds(task.RecordedTime), task.TimerStatus)
		}
		fmt.Println(line)
	}
}

func formatSeconds(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}
