package tclient

import (
	"fmt"

	"github.com/gotd/td/tg"
)

// rawMessage keeps the transport-level handles a Message needs for a
// later download.
type rawMessage struct {
	msg *tg.Message
	loc tg.InputFileLocationClass
}

// fromTG converts a wire message, extracting the payload location for
// documents and photos. Other media kinds (polls, geo, contacts) are
// relayed as text.
func fromTG(m *tg.Message) *Message {
	out := &Message{
		ID:   m.ID,
		Text: m.Message,
		raw:  rawMessage{msg: m},
	}

	media, ok := m.GetMedia()
	if !ok {
		return out
	}
	switch md := media.(type) {
	case *tg.MessageMediaDocument:
		doc, ok := md.Document.AsNotEmpty()
		if !ok {
			return out
		}
		name := documentName(doc)
		if name == "" {
			name = fmt.Sprintf("%d.bin", m.ID)
		}
		out.File = &FileInfo{Name: name, Size: doc.Size}
		out.raw.loc = doc.AsInputDocumentFileLocation()
	case *tg.MessageMediaPhoto:
		photo, ok := md.Photo.AsNotEmpty()
		if !ok {
			return out
		}
		sizeType, size := largestPhotoSize(photo)
		if sizeType == "" {
			return out
		}
		out.File = &FileInfo{Name: fmt.Sprintf("%d.jpg", m.ID), Size: size}
		out.raw.loc = &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     sizeType,
		}
	}
	return out
}

func documentName(doc *tg.Document) string {
	for _, attr := range doc.Attributes {
		if fn, ok := attr.(*tg.DocumentAttributeFilename); ok {
			return fn.FileName
		}
	}
	return ""
}

func largestPhotoSize(photo *tg.Photo) (string, int64) {
	var (
		best string
		size int64
	)
	for _, s := range photo.Sizes {
		switch v := s.(type) {
		case *tg.PhotoSize:
			if int64(v.Size) >= size {
				best, size = v.Type, int64(v.Size)
			}
		case *tg.PhotoSizeProgressive:
			var max int
			for _, n := range v.Sizes {
				if n > max {
					max = n
				}
			}
			if int64(max) >= size {
				best, size = v.Type, int64(max)
			}
		}
	}
	return best, size
}

func extractMessages(res tg.MessagesMessagesClass) []*tg.Message {
	var raw []tg.MessageClass
	switch v := res.(type) {
	case *tg.MessagesMessages:
		raw = v.Messages
	case *tg.MessagesMessagesSlice:
		raw = v.Messages
	case *tg.MessagesChannelMessages:
		raw = v.Messages
	default:
		return nil
	}
	out := make([]*tg.Message, 0, len(raw))
	for _, m := range raw {
		if msg, ok := m.(*tg.Message); ok {
			out = append(out, msg)
		}
	}
	return out
}
