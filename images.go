package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// imageOverlay holds the short-lived optimistic previews shown between
// "files chosen" and "upload finished". The renderer prefers these
// over the persisted image list; they are discarded when the upload
// resolves, whether or not the persisted update succeeded.
type imageOverlay struct {
	previews  map[string][]string
	uploading map[string]struct{}
}

func newImageOverlay() *imageOverlay {
	return &imageOverlay{
		previews:  make(map[string][]string),
		uploading: make(map[string]struct{}),
	}
}

func (o *imageOverlay) Begin(productID string, files []string) {
	o.previews[productID] = append([]string{}, files...)
	o.uploading[productID] = struct{}{}
}

func (o *imageOverlay) Previews(productID string) []string {
	return o.previews[productID]
}

func (o *imageOverlay) Uploading(productID string) bool {
	_, ok := o.uploading[productID]
	return ok
}

// Finish clears the transient state for a product regardless of the
// upload outcome; there is no retry here.
func (o *imageOverlay) Finish(productID string) {
	delete(o.previews, productID)
	delete(o.uploading, productID)
}

type uploadProgressMsg struct {
	productID string
	done      int
	total     int
}

type uploadFinishedMsg struct {
	productID  string
	startIndex int
	urls       []string
	err        error
}

type uploadClosedMsg struct{}

type uploadEvent interface{ isUpload() }

func (uploadProgressMsg) isUpload() {}
func (uploadFinishedMsg) isUpload() {}

// runUpload copies the chosen files through the store one at a time,
// reporting progress per file.
func runUpload(st *catalogStore, productID string, files []string, startIndex int, ch chan<- uploadEvent) {
	defer close(ch)
	var urls []string
	for i, file := range files {
		out, err := st.UploadFiles([]string{file}, productID, startIndex+i)
		if err != nil {
			ch <- uploadFinishedMsg{productID: productID, startIndex: startIndex, urls: urls, err: err}
			return
		}
		urls = append(urls, out...)
		ch <- uploadProgressMsg{productID: productID, done: i + 1, total: len(files)}
	}
	ch <- uploadFinishedMsg{productID: productID, startIndex: startIndex, urls: urls}
}

func startUploadCmd(st *catalogStore, productID string, files []string, startIndex int) (tea.Cmd, chan uploadEvent) {
	ch := make(chan uploadEvent)
	go runUpload(st, productID, files, startIndex, ch)
	return waitForUploadMsg(ch), ch
}

func waitForUploadMsg(ch <-chan uploadEvent) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return uploadClosedMsg{}
		}
		return msg
	}
}

// expandImageFiles filters a file-selection input to files that exist.
func expandImageFiles(paths []string) []string {
	var files []string
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil || stat.IsDir() {
			continue
		}
		files = append(files, path)
	}
	return files
}

// bestPhotoIndex picks the largest image file as the "best photo";
// non-local references keep their current order.
func bestPhotoIndex(images []string) int {
	best := 0
	var bestSize int64 = -1
	for i, img := range images {
		stat, err := os.Stat(img)
		if err != nil {
			continue
		}
		if stat.Size() > bestSize {
			bestSize = stat.Size()
			best = i
		}
	}
	return best
}

// promoteImage moves the image at index to the front so it becomes the
// primary image, preserving the order of the rest.
func promoteImage(images []string, index int) []string {
	if index <= 0 || index >= len(images) {
		return images
	}
	out := make([]string, 0, len(images))
	out = append(out, images[index])
	out = append(out, images[:index]...)
	out = append(out, images[index+1:]...)
	return out
}
