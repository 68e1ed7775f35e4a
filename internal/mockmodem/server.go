// Package mockmodem is a fake Netgear LTE modem web API backed by an
// in-memory inbox, for local development and tests.
package mockmodem

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const receivedTimeLayout = "2006-01-02T15:04:05"

// SMS is a message as the modem reports it in model.json.
type SMS struct {
	ID           int    `json:"id"`
	Sender       string `json:"sender"`
	Text         string `json:"text"`
	ReceivedTime string `json:"receivedTime"`
	Read         bool   `json:"read"`
}

// Inbox is the modem state. It is safe for concurrent use.
type Inbox struct {
	mu         sync.Mutex
	msgs       []SMS
	nextID     int
	token      string
	password   string
	loggedIn   bool
	failDelete map[int]bool
	noSMS      bool
}

// NewInbox returns an empty inbox. A non-empty password makes deletions
// require a prior login.
func NewInbox(password string) *Inbox {
	return &Inbox{
		nextID:     1,
		token:      uuid.NewString(),
		password:   password,
		failDelete: make(map[int]bool),
	}
}

// Add stores a new message, newest first like the real device, and returns it.
func (i *Inbox) Add(sender, text string, received time.Time) SMS {
	i.mu.Lock()
	defer i.mu.Unlock()

	msg := SMS{
		ID:           i.nextID,
		Sender:       sender,
		Text:         text,
		ReceivedTime: received.UTC().Format(receivedTimeLayout),
	}
	i.nextID++
	i.msgs = append([]SMS{msg}, i.msgs...)
	return msg
}

// Messages returns a copy of the inbox.
func (i *Inbox) Messages() []SMS {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]SMS, len(i.msgs))
	copy(out, i.msgs)
	return out
}

// IDs returns the ids currently in the inbox in ascending order.
func (i *Inbox) IDs() []int {
	msgs := i.Messages()
	ids := make([]int, len(msgs))
	for n, m := range msgs {
		ids[n] = m.ID
	}
	sort.Ints(ids)
	return ids
}

// FailDeletes makes deletion of the given ids fail.
func (i *Inbox) FailDeletes(ids ...int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, id := range ids {
		i.failDelete[id] = true
	}
}

// DropSMSSection simulates a firmware whose model.json lacks the sms section.
func (i *Inbox) DropSMSSection() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.noSMS = true
}

// Reboot issues a new session token and drops any login, as a power cycle
// of the real device does.
func (i *Inbox) Reboot() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.token = uuid.NewString()
	i.loggedIn = false
}

// Token returns the session token embedded in the index page.
func (i *Inbox) Token() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.token
}

func (i *Inbox) delete(id int) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.failDelete[id] {
		return false
	}
	for n, m := range i.msgs {
		if m.ID == id {
			i.msgs = append(i.msgs[:n], i.msgs[n+1:]...)
			return true
		}
	}
	return false
}

// NewRouter returns the gin engine serving the modem endpoints.
func NewRouter(inbox *Inbox) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/index.html", inbox.handleIndex)
	r.GET("/api/model.json", inbox.handleModel)
	r.POST("/Forms/config", inbox.handleConfig)
	r.GET("/success.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/error.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": false})
	})

	admin := r.Group("/admin")
	{
		admin.POST("/sms", inbox.handleAddSMS)
	}
	return r
}

func (i *Inbox) handleIndex(c *gin.Context) {
	page := fmt.Sprintf(`<html><body><form><input type="hidden" name="token" value="%s"></form></body></html>`, i.Token())
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (i *Inbox) handleModel(c *gin.Context) {
	i.mu.Lock()
	noSMS := i.noSMS
	i.mu.Unlock()

	model := gin.H{
		"general": gin.H{"model": "LM1200", "FWversion": "mock"},
	}
	if !noSMS {
		msgs := i.Messages()
		model["sms"] = gin.H{"msgCount": len(msgs), "msgs": msgs}
	}
	c.JSON(http.StatusOK, model)
}

func (i *Inbox) handleConfig(c *gin.Context) {
	okTarget := c.DefaultPostForm("ok_redirect", "/success.json")
	errTarget := c.DefaultPostForm("err_redirect", "/error.json")

	if c.PostForm("token") != i.Token() {
		c.Redirect(http.StatusFound, errTarget)
		return
	}

	if pw, ok := c.GetPostForm("session.password"); ok {
		i.mu.Lock()
		i.loggedIn = pw == i.password
		loggedIn := i.loggedIn
		i.mu.Unlock()
		if !loggedIn {
			c.Redirect(http.StatusFound, errTarget)
			return
		}
		c.Redirect(http.StatusFound, okTarget)
		return
	}

	if raw, ok := c.GetPostForm("sms.deleteId"); ok {
		i.mu.Lock()
		authorized := i.password == "" || i.loggedIn
		i.mu.Unlock()

		id, err := strconv.Atoi(raw)
		if !authorized || err != nil || !i.delete(id) {
			c.Redirect(http.StatusFound, errTarget)
			return
		}
		c.Redirect(http.StatusFound, okTarget)
		return
	}

	c.Redirect(http.StatusFound, errTarget)
}

func (i *Inbox) handleAddSMS(c *gin.Context) {
	var req struct {
		Sender       string `json:"sender"`
		Text         string `json:"text"`
		ReceivedTime string `json:"receivedTime"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	received := time.Now()
	if req.ReceivedTime != "" {
		t, err := time.Parse(time.RFC3339, req.ReceivedTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receivedTime format (use RFC3339)"})
			return
		}
		received = t
	}

	msg := i.Add(req.Sender, req.Text, received)
	c.JSON(http.StatusOK, msg)
}
