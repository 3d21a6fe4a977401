package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/petervdpas/goopchat/internal/call"
	"github.com/petervdpas/goopchat/internal/chat"
	"github.com/petervdpas/goopchat/internal/state"
)

const replHelp = `Commands:
  /channels                      list channels
  /switch <channel>              make a channel active
  /create <name> [public|private] [description...]
  /join <channel>  /leave <channel>
  /rename <channel> <name>       /remove <channel>
  /history                       show the loaded messages
  /older                         load the previous page
  /edit <id> <text>              /delete <id>
  /search [-here] <query>
  /users  /online  /typing [on|off]
  /call <user> [audio|video]     /accept  /decline  /hangup
  /mute  /video  /status
  /logs [n|follow|off]  /help  /quit
Anything else is sent to the active channel.`

type repl struct {
	c    *Coordinator
	logs *LogBuffer
	in   io.Reader

	outMu sync.Mutex
	out   io.Writer

	followMu sync.Mutex
	unfollow func()
}

func newREPL(c *Coordinator, logs *LogBuffer, in io.Reader, out io.Writer) *repl {
	return &repl{c: c, logs: logs, in: in, out: out}
}

func (r *repl) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

// run reads commands until EOF, /quit or ctx is done.
func (r *repl) run(ctx context.Context) error {
	stop := r.watch(ctx)
	defer stop()
	defer r.stopFollow()

	r.printf("Type /help for commands.")
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := r.exec(ctx, line)
			if err != nil {
				r.printf("error: %v", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// watch prints pushed messages, typing changes and call progress.
func (r *repl) watch(ctx context.Context) func() {
	changes := r.c.Store().Subscribe()
	presence := r.c.Presence().Subscribe()
	var calls chan call.Event
	if r.c.Calls() != nil {
		calls = r.c.Calls().Subscribe()
	}

	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-wctx.Done():
				return
			case ch, ok := <-changes:
				if !ok {
					return
				}
				if ch.Type == chat.ChangeInsert {
					if m, found := lo.Find(r.c.Store().Snapshot(), func(m chat.Message) bool { return m.ID == ch.MessageID }); found {
						r.printf("%s", formatMessage(m))
					}
				}
			case evt, ok := <-presence:
				if !ok {
					return
				}
				if evt.Type == "typing" && len(evt.Typing) > 0 {
					r.printf("… %s typing", strings.Join(sortedValues(evt.Typing), ", "))
				}
			case evt, ok := <-calls:
				if !ok {
					return
				}
				r.printCall(evt)
			}
		}
	}()

	return func() {
		cancel()
		<-done
		r.c.Store().Unsubscribe(changes)
		r.c.Presence().Unsubscribe(presence)
		if calls != nil {
			r.c.Calls().Unsubscribe(calls)
		}
	}
}

func (r *repl) printCall(evt call.Event) {
	switch evt.State {
	case call.StateIncomingRinging:
		r.printf("📞 %s call from %s (/accept or /decline)", evt.Kind, evt.RemoteName)
	case call.StateOutgoing:
		r.printf("📞 calling %s…", evt.RemoteName)
	case call.StateConnected:
		r.printf("📞 connected with %s", evt.RemoteName)
	case call.StateEnded:
		if evt.Err != nil {
			r.printf("📞 call ended: %v", evt.Err)
		} else {
			r.printf("📞 call ended")
		}
	}
}

// exec runs one input line. It reports whether the REPL should stop.
func (r *repl) exec(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, r.c.Send(line)
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch cmd {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		r.printf("%s", replHelp)

	case "/channels":
		list, err := r.c.ListChannels(ctx)
		if err != nil {
			return false, err
		}
		active, _ := r.c.Active()
		for _, ch := range list {
			mark := " "
			if ch.ID == active.ID {
				mark = "*"
			}
			member := ""
			if ch.HasMember(r.c.Identity().UserID) {
				member = " (member)"
			}
			r.printf("%s #%-20s %-7s %s%s  [%s]", mark, ch.Name, ch.Visibility, ch.Description, member, ch.ID)
		}

	case "/switch":
		if len(args) != 1 {
			return false, errors.New("usage: /switch <channel>")
		}
		ch, err := r.c.SelectChannel(ctx, args[0])
		if err != nil {
			return false, err
		}
		r.printf("now in #%s", ch.Name)
		r.printHistory()

	case "/create":
		if len(args) == 0 {
			return false, errors.New("usage: /create <name> [public|private] [description]")
		}
		vis := chat.VisibilityPublic
		desc := args[1:]
		if len(desc) > 0 && (desc[0] == string(chat.VisibilityPublic) || desc[0] == string(chat.VisibilityPrivate)) {
			vis = chat.Visibility(desc[0])
			desc = desc[1:]
		}
		ch, err := r.c.CreateChannel(ctx, args[0], strings.Join(desc, " "), vis, []string{r.c.Identity().UserID})
		if err != nil {
			return false, err
		}
		r.printf("created #%s [%s]", ch.Name, ch.ID)

	case "/join", "/leave", "/remove":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <channel>", cmd)
		}
		id := r.channelID(args[0])
		var err error
		switch cmd {
		case "/join":
			_, err = r.c.JoinChannel(ctx, id)
		case "/leave":
			_, err = r.c.LeaveChannel(ctx, id)
		default:
			err = r.c.DeleteChannel(ctx, id)
		}
		if err != nil {
			return false, err
		}
		r.printf("ok")

	case "/rename":
		if len(args) < 2 {
			return false, errors.New("usage: /rename <channel> <name>")
		}
		ch, ok := r.c.FindChannel(args[0])
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownChannel, args[0])
		}
		if _, err := r.c.UpdateChannel(ctx, ch.ID, strings.Join(args[1:], " "), ch.Description); err != nil {
			return false, err
		}
		r.printf("ok")

	case "/history":
		r.printHistory()

	case "/older":
		before := len(r.c.Store().Snapshot())
		if err := r.c.LoadOlder(ctx); err != nil {
			return false, err
		}
		if r.c.Store().Cursor().Exhausted && len(r.c.Store().Snapshot()) == before {
			r.printf("no older messages")
			return false, nil
		}
		r.printHistory()

	case "/edit":
		if len(args) < 2 {
			return false, errors.New("usage: /edit <id> <text>")
		}
		return false, r.c.Edit(ctx, args[0], strings.TrimSpace(strings.TrimPrefix(rest, args[0])))

	case "/delete":
		if len(args) != 1 {
			return false, errors.New("usage: /delete <id>")
		}
		return false, r.c.Delete(ctx, args[0])

	case "/search":
		scoped := len(args) > 0 && args[0] == "-here"
		query := rest
		if scoped {
			query = strings.TrimSpace(strings.TrimPrefix(rest, "-here"))
		}
		if query == "" {
			return false, errors.New("usage: /search [-here] <query>")
		}
		found, err := r.c.Search(ctx, query, scoped)
		if err != nil {
			return false, err
		}
		for _, m := range found {
			r.printf("%s", formatMessage(m))
		}
		r.printf("%d result(s)", len(found))

	case "/users":
		users, err := r.c.Users(ctx)
		if err != nil {
			return false, err
		}
		for _, u := range users {
			status := ""
			if r.c.Presence().IsOnline(u.ID) {
				status = " (online)"
			}
			r.printf("  %s%s  [%s]", u.Username, status, u.ID)
		}

	case "/online":
		for _, u := range r.c.Presence().Online() {
			r.printf("  %s  [%s]", u.Username, u.ID)
		}

	case "/typing":
		if len(args) == 0 {
			names := sortedValues(r.c.Presence().Typing())
			if len(names) == 0 {
				r.printf("nobody is typing")
			} else {
				r.printf("%s typing", strings.Join(names, ", "))
			}
			return false, nil
		}
		return false, r.c.SendTyping(args[0] == "on")

	case "/call":
		if len(args) == 0 {
			return false, errors.New("usage: /call <user> [audio|video]")
		}
		kind := call.KindVideo
		if len(args) > 1 {
			kind = call.ParseKind(args[1])
		}
		return false, r.c.StartCall(ctx, r.userID(args[0]), kind)

	case "/accept", "/decline", "/hangup", "/mute", "/video", "/status":
		m := r.c.Calls()
		if m == nil {
			return false, call.ErrClosed
		}
		return false, r.callCommand(ctx, m, cmd)

	case "/logs":
		if len(args) > 0 {
			switch args[0] {
			case "follow":
				r.follow()
				return false, nil
			case "off":
				r.stopFollow()
				return false, nil
			}
		}
		n := 20
		if len(args) > 0 {
			n = atoiDefault(args[0], n)
		}
		for _, e := range r.logs.Tail(n) {
			r.printf("%s %s", e.TS.Format("15:04:05"), e.Msg)
		}

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}

// follow streams new log lines to the terminal until stopFollow.
func (r *repl) follow() {
	r.followMu.Lock()
	defer r.followMu.Unlock()
	if r.unfollow != nil {
		return
	}
	ch, cancel := r.logs.Subscribe()
	r.unfollow = cancel
	go func() {
		for e := range ch {
			r.printf("log %s %s", e.TS.Format("15:04:05"), e.Msg)
		}
	}()
	r.printf("following logs (/logs off to stop)")
}

func (r *repl) stopFollow() {
	r.followMu.Lock()
	cancel := r.unfollow
	r.unfollow = nil
	r.followMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *repl) printHistory() {
	for _, m := range r.c.Store().Snapshot() {
		r.printf("%s", formatMessage(m))
	}
}

// channelID resolves a channel name to its id; unknown refs pass through
// so public channels not yet listed can be joined by id.
func (r *repl) channelID(ref string) string {
	if ch, ok := r.c.FindChannel(ref); ok {
		return ch.ID
	}
	return ref
}

// userID resolves an online username to its id.
func (r *repl) userID(ref string) string {
	if u, ok := lo.Find(r.c.Presence().Online(), func(u state.User) bool {
		return strings.EqualFold(u.Username, ref)
	}); ok {
		return u.ID
	}
	return ref
}

func (r *repl) callCommand(ctx context.Context, m *call.Manager, cmd string) error {
	switch cmd {
	case "/accept":
		return m.Accept(ctx)
	case "/decline":
		return m.Decline()
	case "/hangup":
		return m.Hangup()
	case "/mute":
		muted, err := m.ToggleAudio()
		if err != nil {
			return err
		}
		r.printf("microphone %s", onOff(!muted))
	case "/video":
		off, err := m.ToggleVideo()
		if err != nil {
			return err
		}
		r.printf("camera %s", onOff(!off))
	case "/status":
		st := m.Status()
		r.printf("call: %s %s %s", st.State, st.Kind, st.RemoteName)
	}
	return nil
}

func sortedValues(m map[string]string) []string {
	vals := lo.Values(m)
	sort.Strings(vals)
	return vals
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
