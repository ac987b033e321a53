// Package lead holds the vocabulary shared by the inbox backend and its clients:
// handler modes, commercial statuses, message kinds and discard reasons, plus
// the status transition table.
package lead

import "strings"

type Mode string

const (
	ModeBot     Mode = "BOT"
	ModeAdvisor Mode = "ADVISOR"
)

func (m Mode) Valid() bool {
	return m == ModeBot || m == ModeAdvisor
}

// ComposerEnabled reports whether a human agent may compose outbound messages.
func (m Mode) ComposerEnabled() bool {
	return m == ModeAdvisor
}

type Status string

const (
	StatusNuevo       Status = "NUEVO"
	StatusPendiente   Status = "PENDIENTE"
	StatusEnGestion   Status = "EN_GESTION"
	StatusSeguimiento Status = "SEGUIMIENTO"
	StatusCotizado    Status = "COTIZADO"
	StatusCierre      Status = "CIERRE"
	StatusDescartado  Status = "DESCARTADO"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{
	StatusNuevo,
	StatusPendiente,
	StatusEnGestion,
	StatusSeguimiento,
	StatusCotizado,
	StatusCierre,
	StatusDescartado,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCierre || s == StatusDescartado
}

func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

func ParseMode(raw string) (Mode, bool) {
	m := Mode(strings.ToUpper(strings.TrimSpace(raw)))
	return m, m.Valid()
}

type Direction string

const (
	DirectionInbound  Direction = "ENTRANTE"
	DirectionOutbound Direction = "SALIENTE"
)

type SenderKind string

const (
	SenderCustomer SenderKind = "CUSTOMER"
	SenderBot      SenderKind = "BOT"
	SenderAgent    SenderKind = "AGENT"
)

type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentImage    ContentKind = "image"
	ContentVideo    ContentKind = "video"
	ContentAudio    ContentKind = "audio"
	ContentDocument ContentKind = "document"
	ContentSticker  ContentKind = "sticker"
)

func (k ContentKind) Valid() bool {
	switch k {
	case ContentText, ContentImage, ContentVideo, ContentAudio, ContentDocument, ContentSticker:
		return true
	}
	return false
}

// RequiresMedia is true for every kind rendered from a media URL.
func (k ContentKind) RequiresMedia() bool {
	return k.Valid() && k != ContentText
}

type DiscardReason string

const (
	ReasonNoResponde  DiscardReason = "No responde"
	ReasonPrecio      DiscardReason = "Precio"
	ReasonCompetencia DiscardReason = "Eligió a la competencia"
	ReasonNoCalifica  DiscardReason = "No califica"
	ReasonDuplicado   DiscardReason = "Duplicado"
	ReasonOtro        DiscardReason = "Otro"
)

var DiscardReasons = []DiscardReason{
	ReasonNoResponde,
	ReasonPrecio,
	ReasonCompetencia,
	ReasonNoCalifica,
	ReasonDuplicado,
	ReasonOtro,
}

func (r DiscardReason) Valid() bool {
	for _, known := range DiscardReasons {
		if r == known {
			return true
		}
	}
	return false
}

// Preview trims a message body down to the size shown in the conversation list.
func Preview(kind ContentKind, content string) string {
	content = strings.TrimSpace(content)
	if content == "" && kind != ContentText {
		return "[" + string(kind) + "]"
	}
	runes := []rune(content)
	if len(runes) > 80 {
		return string(runes[:77]) + "..."
	}
	return content
}
