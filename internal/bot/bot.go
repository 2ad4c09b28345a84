package bot

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/taqrir/reportbot/internal/model/report"
	"github.com/taqrir/reportbot/internal/render"
	"github.com/taqrir/reportbot/internal/service/assembler"
	"github.com/taqrir/reportbot/internal/service/dialogue"
)

// ErrDelivery signals that a finished document could not be handed to the
// transport.
var ErrDelivery = errors.New("document delivery failed")

// Channel delivers outbound messages and documents to a chat.
type Channel interface {
	SendText(chatID int64, text string) error
	SendDocument(chatID int64, filename string, data []byte, caption string) error
}

// Renderer turns a report spec into document bytes.
type Renderer interface {
	Render(spec report.Spec) ([]byte, error)
}

const (
	documentFileName = "academic_report.pdf"
	captionSuccess   = "✅ تم إنشاء التقرير بنجاح"

	msgHelp = "أوامر البوت:\n" +
		"/start — بدء إنشاء تقرير جديد (يلغي أي جلسة سابقة)\n" +
		"/cancel — إلغاء الجلسة الحالية\n" +
		"/help — عرض هذه الرسالة\n" +
		"أجب عن الأسئلة واحداً تلو الآخر وسيصلك التقرير جاهزاً."
	msgNoSession = "لا توجد جلسة نشطة. أرسل /start لبدء إنشاء تقرير جديد."
	msgCancelled = "تم إلغاء الجلسة. أرسل /start للبدء من جديد."
	msgGenFailed = "❌ تعذر توليد محتوى التقرير. أرسل /start للمحاولة من جديد."
	msgFailed    = "❌ حدث خطأ أثناء إنشاء التقرير. أرسل /start للمحاولة من جديد."
)

// Bot wires the dialogue store, assembler and renderer behind a messaging
// channel. Commands mutate the store inline, so /cancel takes effect even
// against an in-flight render; everything that touches the network runs
// on a per-chat queue, keeping the caller free of blocking sends while
// replies for one chat stay in delivery order and distinct chats proceed
// independently.
type Bot struct {
	channel   Channel
	store     *dialogue.Store
	assembler *assembler.Assembler
	renderer  Renderer
	queue     *workQueue
}

// New assembles the orchestrator.
func New(channel Channel, store *dialogue.Store, asm *assembler.Assembler, renderer Renderer) *Bot {
	return &Bot{
		channel:   channel,
		store:     store,
		assembler: asm,
		renderer:  renderer,
		queue:     newWorkQueue(),
	}
}

// Dispatch routes one inbound message. command is empty for plain text.
func (b *Bot) Dispatch(ctx context.Context, chatID int64, command, text string) {
	switch command {
	case "start":
		_, prompt := b.store.Begin(chatID)
		b.reply(chatID, prompt)
	case "cancel":
		b.store.Cancel(chatID)
		b.reply(chatID, msgCancelled)
	case "help":
		b.reply(chatID, msgHelp)
	case "":
		b.queue.submit(chatID, func() {
			b.handleAnswer(ctx, chatID, text)
		})
	default:
		b.reply(chatID, msgHelp)
	}
}

func (b *Bot) handleAnswer(ctx context.Context, chatID int64, text string) {
	step, err := b.store.RecordAnswer(chatID, text)
	if err != nil {
		if errors.Is(err, dialogue.ErrNoActiveSession) {
			b.send(chatID, msgNoSession)
			return
		}
		log.Printf("[bot] record answer for chat=%d: %v", chatID, err)
		b.send(chatID, msgFailed)
		return
	}

	if !step.Done {
		b.send(chatID, step.Prompt)
		return
	}
	b.deliver(ctx, step.Session)
}

// deliver assembles, renders and sends the document for a completed
// session. The session stays claimable until delivery time so a /cancel
// or /start racing a slow render suppresses the stale artifact.
func (b *Bot) deliver(ctx context.Context, session report.Session) {
	spec, err := b.assembler.Assemble(ctx, session)
	var data []byte
	if err == nil {
		data, err = b.renderer.Render(spec)
	}

	if !b.store.Finish(session.ChatID, session.ID) {
		log.Printf("[bot] dropping artifact for superseded session=%s chat=%d", session.ID, session.ChatID)
		return
	}

	switch {
	case errors.Is(err, assembler.ErrContentGeneration):
		log.Printf("[report] content generation for session=%s: %v", session.ID, err)
		b.send(session.ChatID, msgGenFailed)
		return
	case errors.Is(err, render.ErrRendering):
		// Invariant violation: the assembler must never emit a malformed spec.
		log.Printf("[report] rendering invariant for session=%s: %v", session.ID, err)
		b.send(session.ChatID, msgFailed)
		return
	case err != nil:
		log.Printf("[report] assembly for session=%s: %v", session.ID, err)
		b.send(session.ChatID, msgFailed)
		return
	}

	if err := b.channel.SendDocument(session.ChatID, documentFileName, data, captionSuccess); err != nil {
		err = fmt.Errorf("%w: %v", ErrDelivery, err)
		log.Printf("[bot] session=%s: %v", session.ID, err)
		b.send(session.ChatID, msgFailed)
		return
	}

	log.Printf("[bot] delivered report for chat=%d pages=%d", session.ChatID, spec.PageCount)
}

func (b *Bot) send(chatID int64, text string) {
	if err := b.channel.SendText(chatID, text); err != nil {
		log.Printf("[bot] send text to chat=%d: %v", chatID, err)
	}
}

// reply queues an outbound message on the chat's queue so a slow or hung
// send for one chat never stalls the update loop or other chats.
func (b *Bot) reply(chatID int64, text string) {
	b.queue.submit(chatID, func() {
		b.send(chatID, text)
	})
}
