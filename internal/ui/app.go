package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"TacticalBoard/internal/config"
	"TacticalBoard/internal/export"
	tbnet "TacticalBoard/internal/net"
	"TacticalBoard/internal/state"
)

const exportTimeout = 2 * time.Minute

// App is the desktop client: the board, its toolbar and the project,
// export and server actions around them.
type App struct {
	cfg      *config.Config
	fyneApp  fyne.App
	window   fyne.Window
	board    *BoardWidget
	toolbar  *Toolbar
	scroll   *container.Scroll
	status   *widget.Label
	exporter *export.Exporter
	loader   export.Loader

	client      *tbnet.Client // nil until connected
	projectName string

	// Server menu items are disabled while a request is in flight.
	serverMenu  *fyne.Menu
	serverBusy  bool
	background  int            // generation of the latest background request
	backgrounds sync.WaitGroup // background fetches in flight
}

// RunApp opens the main window and blocks until it is closed. joinAddr is
// a host:port from a join link, or empty.
func RunApp(cfg *config.Config, joinAddr string) error {
	loader := &export.ImageLoader{}
	compositor, err := export.NewCompositor(export.Options{
		Watermark:          cfg.Export.Watermark,
		ShowLabelPanel:     cfg.Export.LabelPanel,
		ShowWatermarkPanel: cfg.Export.WatermarkPanel,
	})
	if err != nil {
		return err
	}
	a := NewApp(app.NewWithID("io.tacticalboard.app"), cfg, &export.Exporter{Compositor: compositor, Loader: loader}, loader)
	if joinAddr != "" {
		a.cfg.Client.Server = joinAddr
		a.showConnect()
	}
	a.window.ShowAndRun()
	a.disconnect()
	return nil
}

func NewApp(fa fyne.App, cfg *config.Config, exporter *export.Exporter, loader export.Loader) *App {
	names := cfg.MapNames()
	first := ""
	if len(names) > 0 {
		first = names[0]
	}

	a := &App{
		cfg:      cfg,
		fyneApp:  fa,
		window:   fa.NewWindow("Tactical Board"),
		board:    NewBoardWidget(state.NewSession(first)),
		status:   widget.NewLabel("Ready"),
		exporter: exporter,
		loader:   loader,
	}
	a.window.Resize(fyne.NewSize(1280, 860))

	a.toolbar = NewToolbar(a.board, names)
	a.toolbar.OnZoom = func() { a.scroll.Refresh() }
	a.toolbar.OnMap = func(string) { a.loadBackground() }
	a.toolbar.OnNotice = a.setStatus
	a.board.OnChange = func() {
		a.toolbar.Sync()
		a.showHistory()
	}
	a.board.OnTextPrompt = a.promptText

	exportPNG := widget.NewButtonWithIcon("PNG", theme.DownloadIcon(), nil)
	exportPNG.OnTapped = func() { a.exportPNG(exportPNG) }
	exportPDF := widget.NewButtonWithIcon("PDF", theme.DocumentIcon(), nil)
	exportPDF.OnTapped = func() { a.exportPDF(exportPDF) }
	printBtn := widget.NewButtonWithIcon("Print", theme.DocumentPrintIcon(), nil)
	printBtn.OnTapped = func() { a.print(printBtn) }

	a.scroll = container.NewScroll(a.board)
	a.window.SetMainMenu(a.menu())
	a.window.SetContent(container.NewBorder(
		a.toolbar.Object(widget.NewLabel("Export:"), exportPNG, exportPDF, printBtn),
		a.status, nil, nil, a.scroll))

	a.loadBackground()
	return a
}

func (a *App) menu() *fyne.MainMenu {
	a.serverMenu = fyne.NewMenu("Server",
		fyne.NewMenuItem("Connect...", a.showConnect),
		fyne.NewMenuItem("Save to Server...", a.remoteSave),
		fyne.NewMenuItem("Load from Server...", a.remoteLoad),
		fyne.NewMenuItem("Delete from Server...", a.remoteDelete),
		fyne.NewMenuItem("Disconnect", a.disconnect),
	)
	return fyne.NewMainMenu(
		fyne.NewMenu("File",
			fyne.NewMenuItem("Open Project...", a.openFile),
			fyne.NewMenuItem("Save Project...", a.saveFile),
		),
		a.serverMenu,
		fyne.NewMenu("Labels",
			fyne.NewMenuItem("Add Name...", a.addTextLabel),
			fyne.NewMenuItem("Add Logo...", a.addLogo),
			fyne.NewMenuItem("Remove Label...", a.removeLabel),
		),
	)
}

func (a *App) setStatus(msg string) {
	a.status.SetText(msg)
}

func (a *App) showHistory() {
	i, n := a.board.Session.HistoryPosition()
	a.setStatus(fmt.Sprintf("%s - %d drawings - history %d/%d",
		a.board.Session.MapName(), len(a.board.Session.Primitives()), i+1, n))
}

func (a *App) showError(err error) {
	log.Printf("[UI] %v", err)
	a.setStatus("Error: " + err.Error())
	dialog.ShowError(err, a.window)
}

// mapRef resolves a map name to its image reference. Names outside the
// catalog are used as references directly.
func (a *App) mapRef(name string) string {
	if ref, ok := a.cfg.MapImage(name); ok {
		return ref
	}
	return name
}

// lockButton keeps btn disabled while a job runs.
func lockButton(btn *widget.Button) func(bool) {
	return func(busy bool) {
		if busy {
			btn.Disable()
		} else {
			btn.Enable()
		}
	}
}

// lockServer disables the Server menu while a request runs.
func (a *App) lockServer(busy bool) {
	a.serverBusy = busy
	for _, item := range a.serverMenu.Items {
		item.Disabled = busy
	}
	a.serverMenu.Refresh()
}

// run executes work off the UI goroutine. lock is called with true before
// the work starts and with false once it ended. done runs on the UI
// goroutine when work succeeded.
func (a *App) run(lock func(bool), timeout time.Duration, work func(ctx context.Context) error, done func()) {
	lock(true)
	a.setStatus("Working...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := work(ctx)
		fyne.Do(func() {
			lock(false)
			if err != nil {
				a.showError(err)
				return
			}
			if done != nil {
				done()
			}
		})
	}()
}

// remote runs a server request unless another one is still in flight.
func (a *App) remote(work func(ctx context.Context) error, done func()) {
	if a.serverBusy {
		a.setStatus("Waiting for the server...")
		return
	}
	a.run(a.lockServer, a.cfg.Client.Timeout.Duration(), work, done)
}

// loadBackground fetches the current map's image. Only the latest request
// is applied, so a slow fetch for a map the user already left is dropped.
func (a *App) loadBackground() {
	ref := a.mapRef(a.board.Session.MapName())
	a.background++
	gen := a.background
	a.backgrounds.Add(1)
	go func() {
		defer a.backgrounds.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Client.Timeout.Duration())
		defer cancel()
		img, err := a.loader.Load(ctx, ref)
		fyne.Do(func() {
			if gen != a.background {
				log.Printf("[UI] Dropping stale background %q", ref)
				return
			}
			if err != nil {
				log.Printf("[UI] Background %q: %v", ref, err)
				a.setStatus("Map image unavailable: " + ref)
				a.board.SetBackground(nil)
			} else {
				a.board.SetBackground(img)
			}
			a.scroll.Refresh()
		})
	}()
}

func (a *App) promptText(at state.Point) {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("Callout")
	dialog.ShowForm("Add Text", "Add", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Text", entry)},
		func(ok bool) {
			if ok {
				a.board.CommitText(at, entry.Text)
			}
		}, a.window)
}

// Exports render fully before asking where to save, so a failed render
// never creates a file.

func (a *App) exportPNG(btn *widget.Button) {
	scene := a.board.Session.Scene()
	ref := a.mapRef(scene.MapName)
	var data []byte
	a.run(lockButton(btn), exportTimeout, func(ctx context.Context) (err error) {
		data, err = a.exporter.PNG(ctx, ref, scene)
		return err
	}, func() {
		a.saveBytes(export.FileName(scene.MapName, ".png"), data)
	})
}

func (a *App) pdfOptions() export.PDFOptions {
	return export.PDFOptions{
		Title:    a.cfg.Export.Title,
		Subtitle: a.cfg.Export.Subtitle,
		Cover:    a.cfg.Export.Cover,
	}
}

func (a *App) exportPDF(btn *widget.Button) {
	scene := a.board.Session.Scene()
	ref := a.mapRef(scene.MapName)
	opts := a.pdfOptions()
	var data []byte
	a.run(lockButton(btn), exportTimeout, func(ctx context.Context) (err error) {
		data, err = a.exporter.PDF(ctx, ref, scene, opts)
		return err
	}, func() {
		a.saveBytes(export.FileName(scene.MapName, ".pdf"), data)
	})
}

func (a *App) print(btn *widget.Button) {
	scene := a.board.Session.Scene()
	ref := a.mapRef(scene.MapName)
	opts := a.pdfOptions()
	var path string
	a.run(lockButton(btn), exportTimeout, func(ctx context.Context) (err error) {
		path, err = a.exporter.Print(ctx, ref, scene, opts)
		return err
	}, func() {
		if err := a.fyneApp.OpenURL(&url.URL{Scheme: "file", Path: path}); err != nil {
			a.showError(fmt.Errorf("open print preview: %w", err))
			return
		}
		a.setStatus("Sent to viewer: " + path)
	})
}

func (a *App) saveBytes(name string, data []byte) {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if w == nil {
			return
		}
		defer w.Close()
		if _, err := w.Write(data); err != nil {
			a.showError(fmt.Errorf("write %s: %w", w.URI().Name(), err))
			return
		}
		a.setStatus(fmt.Sprintf("Saved %s (%d bytes)", w.URI().Name(), len(data)))
	}, a.window)
	d.SetFileName(name)
	d.Show()
}

// Local project files.

func (a *App) saveFile() {
	name := a.projectName
	if name == "" {
		name = a.board.Session.MapName()
	}
	data, err := state.EncodeProject(a.board.Session.Project(name))
	if err != nil {
		a.showError(err)
		return
	}
	a.saveBytes(export.FileName(name, ".json"), data)
}

func (a *App) openFile() {
	dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if r == nil {
			return
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			a.showError(fmt.Errorf("read %s: %w", r.URI().Name(), err))
			return
		}
		p, err := state.DecodeProject(data)
		if err != nil {
			a.showError(err)
			return
		}
		a.applyProject(p)
	}, a.window)
}

func (a *App) applyProject(p state.Project) {
	if err := a.board.Session.LoadProject(p); err != nil {
		a.showError(err)
		return
	}
	a.projectName = p.Name
	a.toolbar.Sync()
	a.loadBackground()
	a.setStatus(fmt.Sprintf("Loaded %q", p.Name))
}

// Project server.

func (a *App) showConnect() {
	server := widget.NewEntry()
	server.SetText(a.cfg.Client.Server)
	server.SetPlaceHolder("host:port (empty to search the network)")
	user := widget.NewEntry()
	user.SetText(a.cfg.Client.User)
	password := widget.NewPasswordEntry()
	signUp := widget.NewCheck("Create account", nil)

	dialog.ShowForm("Connect to Server", "Connect", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Server", server),
		widget.NewFormItem("User", user),
		widget.NewFormItem("Password", password),
		widget.NewFormItem("", signUp),
	}, func(ok bool) {
		if ok {
			a.connect(server.Text, user.Text, password.Text, signUp.Checked)
		}
	}, a.window)
}

func (a *App) connect(server, user, password string, signUp bool) {
	if a.serverBusy {
		a.setStatus("Waiting for the server...")
		return
	}
	a.disconnect()
	var c *tbnet.Client
	a.remote(func(ctx context.Context) error {
		if server == "" {
			found, err := tbnet.Discover(ctx, 3*time.Second)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				return errors.New("no project server found on the local network")
			}
			server = found[0]
		}
		var err error
		if c, err = tbnet.Dial(ctx, server); err != nil {
			return err
		}
		if signUp {
			err = c.SignUp(ctx, user, password)
		} else {
			err = c.Login(ctx, user, password)
		}
		if err != nil {
			c.Close()
			return err
		}
		return nil
	}, func() {
		a.client = c
		a.cfg.Client.Server, a.cfg.Client.User = server, user
		a.setStatus(fmt.Sprintf("Connected to %s as %s", server, user))
	})
}

func (a *App) disconnect() {
	if a.client == nil {
		return
	}
	c := a.client
	a.client = nil
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		c.Logout(ctx)
		c.Close()
	}()
	a.setStatus("Disconnected")
}

func (a *App) requireClient() (*tbnet.Client, bool) {
	if a.client == nil {
		dialog.ShowInformation("Not connected", "Connect to a project server first.", a.window)
		return nil, false
	}
	return a.client, true
}

func (a *App) remoteSave() {
	c, ok := a.requireClient()
	if !ok {
		return
	}
	name := widget.NewEntry()
	name.SetText(a.projectName)
	dialog.ShowForm("Save to Server", "Save", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Name", name)},
		func(ok bool) {
			if !ok || name.Text == "" {
				return
			}
			p := a.board.Session.Project(name.Text)
			a.remote(func(ctx context.Context) error {
				return c.Save(ctx, p)
			}, func() {
				a.projectName = p.Name
				a.setStatus(fmt.Sprintf("Saved %q to server", p.Name))
			})
		}, a.window)
}

// pickRemote lists the user's projects and calls chosen with one of them.
func (a *App) pickRemote(title, action string, chosen func(c *tbnet.Client, name string)) {
	c, ok := a.requireClient()
	if !ok {
		return
	}
	var names []string
	a.remote(func(ctx context.Context) (err error) {
		names, err = c.List(ctx)
		return err
	}, func() {
		if len(names) == 0 {
			dialog.ShowInformation(title, "No saved projects.", a.window)
			return
		}
		sel := widget.NewSelect(names, nil)
		sel.SetSelectedIndex(0)
		dialog.ShowForm(title, action, "Cancel",
			[]*widget.FormItem{widget.NewFormItem("Project", sel)},
			func(ok bool) {
				if ok && sel.Selected != "" {
					chosen(c, sel.Selected)
				}
			}, a.window)
	})
}

func (a *App) remoteLoad() {
	a.pickRemote("Load from Server", "Load", func(c *tbnet.Client, name string) {
		var p state.Project
		a.remote(func(ctx context.Context) (err error) {
			p, err = c.Load(ctx, name)
			return err
		}, func() {
			a.applyProject(p)
		})
	})
}

func (a *App) remoteDelete() {
	a.pickRemote("Delete from Server", "Delete", func(c *tbnet.Client, name string) {
		a.remote(func(ctx context.Context) error {
			return c.Delete(ctx, name)
		}, func() {
			a.setStatus(fmt.Sprintf("Deleted %q", name))
		})
	})
}

// Labels.

// viewCenter is the canvas point at the middle of the visible area.
func (a *App) viewCenter() state.Point {
	z := float32(a.board.Session.Zoom())
	c := a.scroll.Offset.Add(fyne.NewPos(a.scroll.Size().Width/2, a.scroll.Size().Height/2))
	return state.Pt(float64(c.X/z), float64(c.Y/z))
}

func (a *App) labelAdded(err error) {
	if errors.Is(err, state.ErrLabelLimit) {
		dialog.ShowInformation("Label limit",
			fmt.Sprintf("A board holds at most %d labels. Remove one first.", state.MaxLabels), a.window)
		return
	}
	if err != nil {
		a.showError(err)
	}
}

func (a *App) addTextLabel() {
	text := widget.NewEntry()
	text.SetPlaceHolder("Team or player name")
	dialog.ShowForm("Add Name", "Add", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Name", text)},
		func(ok bool) {
			if !ok || text.Text == "" {
				return
			}
			_, err := a.board.Session.AddLabel(text.Text, a.board.Session.Color(), a.viewCenter())
			a.labelAdded(err)
		}, a.window)
}

func (a *App) addLogo() {
	dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if r == nil {
			return
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			a.showError(err)
			return
		}
		if _, err := export.DecodeImage(data); err != nil {
			a.showError(fmt.Errorf("%s: %w", r.URI().Name(), err))
			return
		}
		_, err = a.board.Session.AddLogo(data, a.viewCenter())
		a.labelAdded(err)
	}, a.window)
}

func (a *App) removeLabel() {
	labels := a.board.Session.Labels()
	if len(labels) == 0 {
		dialog.ShowInformation("Remove Label", "There are no labels.", a.window)
		return
	}
	options := make([]string, len(labels))
	for i, l := range labels {
		if l.Kind == state.LabelLogo {
			options[i] = fmt.Sprintf("%d. logo", i+1)
		} else {
			options[i] = fmt.Sprintf("%d. %s", i+1, l.Text)
		}
	}
	sel := widget.NewSelect(options, nil)
	dialog.ShowForm("Remove Label", "Remove", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Label", sel)},
		func(ok bool) {
			i := sel.SelectedIndex()
			if ok && i >= 0 {
				a.board.Session.RemoveLabel(labels[i].ID)
			}
		}, a.window)
}
