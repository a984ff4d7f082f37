/*
Package profile implements the roster lookup commands:

	!info <handle>  request and display a user's profile
	!dp <handle>    send a user's display picture
	!l, !list       list currently known users

Commands work in rooms and in direct messages; replies go back the way the
command arrived.
*/
package profile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"howdybot/internal/app/wire"
	"howdybot/internal/features"
	"howdybot/internal/pkg/logx"
)

const ledgerTimeout = 5 * time.Second

// Feature is the profile feature module.
type Feature struct {
	rt features.Runtime
}

// New creates the profile feature.
func New() *Feature {
	return &Feature{}
}

// Name implements features.Feature.
func (f *Feature) Name() string { return "profile" }

// Register implements features.Feature.
func (f *Feature) Register(rt features.Runtime) error {
	f.rt = rt

	rt.On("event:"+wire.HandlerChatroomMessage, "profile.commands", f.onMessage)
	rt.On("event:"+wire.HandlerMessage, "profile.commands", f.onMessage)
	rt.On("event:"+wire.HandlerProfile, "profile.response", f.onProfileResponse)
	return nil
}

// onMessage handles both room and direct text messages, dispatching the
// feature's commands.
func (f *Feature) onMessage(frame wire.Frame) {
	senderID := frame.UserID()
	if senderID != "" && senderID == f.rt.OwnID() {
		return
	}

	cmd, ok := features.ParseCommand(frame.String("text"))
	if !ok {
		return
	}

	sender := frame.String("username")
	dm := frame.Handler() == wire.HandlerMessage

	switch cmd.Name {
	case "info":
		f.handleInfo(sender, cmd.Arg1, dm)
	case "dp":
		f.handleDisplayPicture(sender, cmd.Arg1, dm)
	case "l", "list":
		f.handleList(sender, dm)
	}

	// Commands from known users keep the ledger handle fresh.
	if senderID != "" && sender != "" {
		ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
		defer cancel()
		if err := f.rt.Ledger().Upsert(ctx, senderID, sender); err != nil {
			logx.Error(err, "Failed to upsert command sender.", "user_id", senderID)
		}
	}
}

func (f *Feature) handleInfo(sender, target string, dm bool) {
	if target == "" {
		f.reply(sender, "Usage: !info <username>", dm)
		return
	}

	if _, ok := f.rt.ResolveUserByHandle(target); !ok {
		f.reply(sender, fmt.Sprintf("User @%s is not around.", target), dm)
		return
	}

	// The full profile arrives asynchronously as an "event:profile"
	// occurrence handled by onProfileResponse.
	if err := f.rt.RequestProfile(target); err != nil {
		f.reply(sender, "Could not request the profile right now.", dm)
		return
	}
	f.reply(sender, fmt.Sprintf("Requested profile info for @%s.", target), dm)
}

// onProfileResponse displays profile details when the platform answers an
// earlier !info request.
func (f *Feature) onProfileResponse(frame wire.Frame) {
	user := frame.User()
	if user == nil {
		return
	}

	handle := user.String("username")
	id := user.UserID()
	level := user.Text("level")

	summary := fmt.Sprintf("👤 %s | ID: %s", handle, id)
	if level != "" {
		summary += " | Lvl: " + level
	}

	if err := f.rt.SendText("", summary, false); err != nil {
		logx.Error(err, "Failed to send profile summary.", "handle", handle)
	}

	if id != "" && handle != "" {
		ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
		defer cancel()

		if err := f.rt.Ledger().Upsert(ctx, id, handle); err != nil {
			logx.Error(err, "Failed to upsert profiled user.", "user_id", id)
			return
		}
		if err := f.rt.Ledger().MergeFeatureData(ctx, id, f.Name(), map[string]any{
			"last_lookup": time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			logx.Error(err, "Failed to record profile lookup.", "user_id", id)
		}
	}
}

func (f *Feature) handleDisplayPicture(sender, target string, dm bool) {
	if target == "" {
		f.reply(sender, "Usage: !dp <username>", dm)
		return
	}

	user, ok := f.rt.ResolveUserByHandle(target)
	if !ok || user.Avatar == "" {
		f.reply(sender, fmt.Sprintf("No display picture found for @%s.", target), dm)
		return
	}

	if err := f.rt.SendImage(pickTarget(sender, dm), user.Avatar, "DP of @"+target, dm); err != nil {
		logx.Error(err, "Failed to send display picture.", "target", target)
	}
}

func (f *Feature) handleList(sender string, dm bool) {
	users := f.rt.Users()
	if len(users) == 0 {
		f.reply(sender, "Nobody is around right now.", dm)
		return
	}

	handles := make([]string, 0, len(users))
	for _, u := range users {
		handles = append(handles, u.Handle)
	}
	sort.Strings(handles)

	var b strings.Builder
	b.WriteString("👥 Users:\n")
	for i, handle := range handles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, handle)
	}
	f.reply(sender, strings.TrimRight(b.String(), "\n"), dm)
}

// reply sends text back the way the command arrived: directly to the sender
// for DM commands, to the default room otherwise.
func (f *Feature) reply(sender, text string, dm bool) {
	if err := f.rt.SendText(pickTarget(sender, dm), text, dm); err != nil {
		logx.Error(err, "Failed to send reply.", "sender", sender)
	}
}

func pickTarget(sender string, dm bool) string {
	if dm {
		return sender
	}
	return ""
}
