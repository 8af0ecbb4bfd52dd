// Package setup implements the interactive configuration wizard.
//
// The wizard is a small state machine. Its current step lives in the
// session's skill.State so several sessions can run it independently.
package setup

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/soyeahso/collig/internal/skill"
	"github.com/soyeahso/collig/internal/skills/gmail"
)

// Wizard steps.
const (
	StateIdle          = "IDLE"
	StateSelectSkill   = "SELECT_SKILL"
	StateGmailCreds    = "GMAIL_CREDS"
	StateBrowserOffer  = "GMAIL_BROWSER_OFFER"
	StateGmailAuthWait = "GMAIL_AUTH_PROMPT"
)

// stateKey is where the current step is kept in skill.State.
const stateKey = "setup.state"

// ConsoleURL is where OAuth desktop credentials are created.
const ConsoleURL = "https://console.cloud.google.com/apis/credentials"

// Setter persists a config value.
type Setter interface {
	Set(key, value string) error
}

// input carries the message lowercased for matching and as typed for paths.
type input struct {
	text string
	raw  string
}

type step func(w *Wizard, in input) (skill.Result, string)

// Wizard is the Setup Wizard executor.
type Wizard struct {
	skill.Base
	cfg   Setter
	home  func() (string, error)
	steps map[string]step
}

var cancelWords = map[string]bool{"cancel": true, "stop": true, "exit": true, "quit": true}

// New creates the wizard, saving discovered settings through cfg.
func New(cfg Setter) *Wizard {
	return &Wizard{
		Base: skill.Base{
			SkillName:        "Setup Wizard",
			SkillDescription: "Interactive step-by-step guide for configuring skills.",
			SkillTriggers:    []string{"setup", "guide", "help me config", "help me auth", "wizard", "configure"},
		},
		cfg:  cfg,
		home: os.UserHomeDir,
		steps: map[string]step{
			StateIdle:          (*Wizard).start,
			StateSelectSkill:   (*Wizard).selectSkill,
			StateGmailCreds:    (*Wizard).gmailCreds,
			StateBrowserOffer:  (*Wizard).browserOffer,
			StateGmailAuthWait: (*Wizard).authPrompt,
		},
	}
}

// Execute advances the wizard by one message.
func (w *Wizard) Execute(ctx context.Context, c skill.Context) (skill.Result, error) {
	st := skill.StateFrom(ctx)
	raw := strings.TrimSpace(c.Message())
	message := strings.ToLower(raw)

	if cancelWords[message] {
		st.Delete(stateKey)
		return skill.Result{
			Response: "Setup cancelled. How else can I help you?",
			Action:   skill.ActionStopSetup,
		}, nil
	}

	current := st.GetString(stateKey)
	if current == "" {
		current = StateIdle
	}
	fn, ok := w.steps[current]
	if !ok {
		st.Delete(stateKey)
		return skill.Result{Response: "I'm not sure where we are in the setup. Let's start over."}, nil
	}

	res, next := fn(w, input{text: message, raw: raw})
	if next == StateIdle {
		st.Delete(stateKey)
	} else {
		st.Set(stateKey, next)
		res.Status = skill.StatusContinue
	}
	return res, nil
}

func ask(text string) skill.Result {
	return skill.Result{Response: text, Action: skill.ActionAskInput}
}

func mentionsGmail(message string) bool {
	return strings.Contains(message, "gmail") || strings.Contains(message, "email")
}

func (w *Wizard) start(in input) (skill.Result, string) {
	message := in.text
	if mentionsGmail(message) {
		return ask("I can help you setup Gmail access via OAuth 2.0.\n\n" +
			"**Step 1:** You need a `credentials.json` file from Google Cloud Console.\n" +
			"(If you don't have one, create a Desktop App OAuth client ID in Google Cloud Console and download the JSON)\n\n" +
			"Please paste the **full path** to your `credentials.json` file:"), StateGmailCreds
	}
	return ask("I can help you configure the following skills:\n" +
		"1. **Gmail** (Secure OAuth access)\n\n" +
		"Which one would you like to setup? (Type 'gmail')"), StateSelectSkill
}

func (w *Wizard) selectSkill(in input) (skill.Result, string) {
	message := in.text
	if mentionsGmail(message) {
		return ask("Okay, let's setup Gmail.\n\n" +
			"**Step 1:** Please paste the **full path** to your Google Cloud `credentials.json` file:"), StateGmailCreds
	}
	return ask("I currently only have a wizard for **Gmail**. Please type 'gmail' or 'cancel'."), StateSelectSkill
}

func openConsole() skill.Result {
	return skill.Result{
		Response: "Opening Google Cloud Console...\n" +
			"Please visit: " + ConsoleURL + "\n\n" +
			"1. Create a Project.\n2. Create OAuth Client ID (Desktop).\n3. Download JSON.\n\n" +
			"**Once downloaded, paste the full path here:**",
		Action: skill.ActionOpenURL,
		Data:   map[string]any{"url": ConsoleURL},
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func hasWord(s string, words ...string) bool {
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}) {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

func affirmative(message string) bool {
	return hasWord(message, "yes", "y", "yeah", "yep", "sure", "ok", "okay", "please")
}

func (w *Wizard) gmailCreds(in input) (skill.Result, string) {
	raw := strings.Trim(in.raw, `'"`)
	if path, ok := w.existingFile(raw); ok {
		if err := w.cfg.Set(gmail.KeyCredentialsFile, path); err != nil {
			return skill.Errorf("I couldn't save the credentials path: %v", err), StateIdle
		}
		return skill.Result{
			Response: "✅ Saved credentials path: `" + path + "`\n\n" +
				"**Step 2:** Now we need to authenticate.\n" +
				"Shall I run the authentication process now? (yes/no)",
			Action: skill.ActionConfirm,
		}, StateGmailAuthWait
	}

	message := in.text
	wantsBrowser := (strings.Contains(message, "open") && strings.Contains(message, "browser")) ||
		(strings.Contains(message, "point") && strings.Contains(message, "right place"))
	if wantsBrowser {
		return openConsole(), StateGmailCreds
	}
	if containsAny(message, "create", "make", "generate", "build", "do it") {
		return ask("I understand you want me to create the credentials for you.\n\n" +
			"⚠️ **Security Limitation:** I cannot create Google Cloud credentials automatically because it requires:\n" +
			"1. Logging into your personal Google account.\n" +
			"2. Agreeing to Google's Terms of Service.\n" +
			"3. Potentially setting up billing (though Gmail API is free).\n\n" +
			"**I can only help you by guiding you to the right page.**\n\n" +
			"Would you like me to open the Google Cloud Console for you? (yes/no)"), StateBrowserOffer
	}
	if strings.Contains(message, "help") || strings.Contains(message, "don't") || hasWord(message, "no") {
		return ask("To get the credentials file:\n" +
			"1. Go to https://console.cloud.google.com/\n" +
			"2. Create a new Project.\n" +
			"3. Enable 'Gmail API' in APIs & Services.\n" +
			"4. Go to 'Credentials' -> 'Create Credentials' -> 'OAuth client ID'.\n" +
			"5. Select 'Desktop app'.\n" +
			"6. Download the JSON file.\n\n" +
			"Once you have it, please enter the **full path** to the file:"), StateGmailCreds
	}

	return ask("❌ I couldn't find a file at `" + raw + "`.\n" +
		"Please check the path and try again (or type 'cancel').\n\n" +
		"If you don't have the file yet, ask me for 'help' or to 'create it' for more info."), StateGmailCreds
}

func (w *Wizard) browserOffer(in input) (skill.Result, string) {
	message := in.text
	if affirmative(message) {
		return openConsole(), StateGmailCreds
	}
	return ask("Okay. Please paste the path to your `credentials.json` file when you have it:"), StateGmailCreds
}

func (w *Wizard) authPrompt(in input) (skill.Result, string) {
	message := in.text
	if affirmative(message) {
		return skill.Result{
			Response: "Great! I've configured the path.\n\n" +
				"To finish, please run this command:\n" +
				"```\ncollig auth gmail\n```\n" +
				"This will open your browser to login.",
			Action: skill.ActionGuideComplete,
		}, StateIdle
	}
	return skill.Result{
		Response: "Okay. You can run `collig auth gmail` later when you are ready.",
		Action:   skill.ActionGuideComplete,
	}, StateIdle
}

// existingFile resolves ~ and makes p absolute so it survives a cwd change.
func (w *Wizard) existingFile(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	abs, err := w.expand(p)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", false
	}
	return abs, true
}

func (w *Wizard) expand(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := w.home()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}
