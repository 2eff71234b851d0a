// Package imageplan drafts one image-generation prompt per planned image:
// a cover plus one per outline section, up to a configured cap.
package imageplan

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"auto_blog_publisher/blog"
)

const (
	// DefaultMaxImages caps the prompts of one document, cover included.
	DefaultMaxImages = 3

	negativePrompt = " --no text, no words, no letters, no numbers, no labels, no annotations"
	genericMotif   = "digital technology visualization, advanced computing concept"
)

// DefaultTechKeywords maps lexical triggers to the visual motif used when a topic matches.
var DefaultTechKeywords = map[string]string{
	"chatgpt":                 "AI chat assistant interface, digital AI conversation",
	"gpt":                     "language model visualization, neural network text generation",
	"artificial intelligence": "digital brain, neural networks visualization, AI processing",
	"machine learning":        "data pattern recognition, algorithm training visualization",
	"deep learning":           "deep neural network architecture, layered AI model",
	"python":                  "code visualization, programming workspace",
	"javascript":              "web development, code on screen",
	"golang":                  "concurrent systems diagram, server code visualization",
	"kubernetes":              "container orchestration, cluster infrastructure diagram",
	"docker":                  "containerization, microservices architecture",
	"cloud":                   "cloud architecture diagram, distributed data centers",
	"cpu":                     "processor chipset, semiconductor circuitry",
	"gpu":                     "graphics processing unit, parallel computing hardware",
	"quantum":                 "quantum processor, qubit visualization",
	"robot":                   "robotics hardware, automated machinery",
	"tesla":                   "electric vehicle technology, autopilot visualization",
	"openai":                  "AI research visualization, generative models",
}

// generalTechTerms mark a topic as technical when no specific keyword matched.
var generalTechTerms = []string{"technology", "software", "hardware", "digital", "algorithm", "data", "ai"}

var techTemplates = []string{
	"Modern technology illustration of {subject}, detailed digital concept visualization",
	"Digital representation of {subject}, futuristic interface concept, detailed tech visualization",
	"Photorealistic hardware visualization of {subject}, cutting-edge device rendering",
	"Technology infrastructure representing {subject}, data center perspective, system architecture",
	"Abstract circuitry visualization of {subject}, high-tech concept art",
}

var standardTemplates = []string{
	"Sophisticated editorial visualization representing {subject}, clean modern aesthetic",
	"Modern digital artwork showcasing {subject}, professional composition",
	"Strategic visual representation of {subject}, executive presentation quality",
	"Conceptual photograph evoking {subject}, natural light, thoughtful framing",
}

var qualityModifiers = []string{
	", photorealistic detail, volumetric lighting, ultra HD quality",
	", cinematic lighting, professional color grading, studio quality",
	", perfect composition, dramatic lighting, crystal clear details",
	", magazine quality, professional post-processing",
}

var techStyleModifiers = []string{
	", premium tech product keynote style",
	", technical documentation imagery, clean diagram aesthetic",
	", technology journalism feature illustration",
}

var standardStyleModifiers = []string{
	", corporate editorial aesthetic",
	", high-end business publication quality",
	", premium brand photography style",
}

// Options configures a Planner.
type Options struct {
	// MaxImages caps the number of prompts, cover included; 0 means DefaultMaxImages.
	MaxImages int
	// TechKeywords maps keyword to motif; nil means DefaultTechKeywords.
	TechKeywords map[string]string
	Logger       *zap.Logger
}

type motif struct {
	keyword     string
	description string
}

// Planner is the image planning stage. It is pure and never fails.
type Planner struct {
	maxImages int
	motifs    []motif
	logger    *zap.Logger
}

func New(opts Options) *Planner {
	if opts.MaxImages <= 0 {
		opts.MaxImages = DefaultMaxImages
	}
	keywords := opts.TechKeywords
	if keywords == nil {
		keywords = DefaultTechKeywords
	}
	motifs := make([]motif, 0, len(keywords))
	for k, v := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if v == "" {
			v = genericMotif
		}
		motifs = append(motifs, motif{keyword: k, description: v})
	}
	slices.SortFunc(motifs, func(a, b motif) int { return strings.Compare(a.keyword, b.keyword) })

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{maxImages: opts.MaxImages, motifs: motifs, logger: logger.Named("imageplan")}
}

// MaxImages reports the configured cap.
func (p *Planner) MaxImages() int { return p.maxImages }

// Plan returns the cover prompt followed by section prompts in outline order.
// Refs are unique and the count never exceeds the cap.
func (p *Planner) Plan(outline []string, topic string) []blog.ImagePrompt {
	matched := p.detect(topic + " " + strings.Join(outline, " "))
	tech := len(matched) > 0

	subjects := []struct{ ref, subject string }{{blog.CoverRef, topic}}
	for i, heading := range outline {
		subjects = append(subjects, struct{ ref, subject string }{blog.SectionRef(i), heading + " in the context of " + topic})
	}

	prompts := make([]blog.ImagePrompt, 0, min(len(subjects), p.maxImages))
	for i, s := range subjects {
		if len(prompts) == p.maxImages {
			break
		}
		prompts = append(prompts, p.prompt(i, s.ref, s.subject, matched))
	}

	p.logger.Debug("image plan",
		zap.String("topic", topic),
		zap.Bool("tech", tech),
		zap.Int("prompts", len(prompts)))
	return prompts
}

func (p *Planner) prompt(i int, ref, subject string, matched []motif) blog.ImagePrompt {
	templates, styles, hints := standardTemplates, standardStyleModifiers, []string{"editorial"}
	if len(matched) > 0 {
		m := matched[i%len(matched)]
		subject = fmt.Sprintf("%s - %s", subject, m.description)
		templates, styles, hints = techTemplates, techStyleModifiers, []string{"technical", m.keyword}
	}
	quality := qualityModifiers[i%len(qualityModifiers)]
	style := styles[i%len(styles)]

	text := strings.ReplaceAll(templates[i%len(templates)], "{subject}", subject) + quality + style + negativePrompt
	hints = append(hints, strings.TrimPrefix(quality, ", "), strings.TrimPrefix(style, ", "), "no-text")
	return blog.ImagePrompt{SectionRef: ref, Text: text, StyleHints: hints}
}

// detect matches configured keywords in text on word boundaries, falling back
// to general technology terms when no specific keyword matched.
func (p *Planner) detect(text string) []motif {
	words := tokenize(text)
	joined := " " + strings.Join(words, " ") + " "
	var matched []motif
	for _, m := range p.motifs {
		kw := strings.Join(tokenize(m.keyword), " ")
		if kw == "" {
			if strings.Contains(strings.ToLower(text), m.keyword) {
				matched = append(matched, m)
			}
			continue
		}
		if strings.Contains(joined, " "+kw+" ") {
			matched = append(matched, m)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	for _, term := range generalTechTerms {
		if slices.Contains(words, term) {
			return []motif{{keyword: term, description: genericMotif}}
		}
	}
	return nil
}

// tokenize lowercases s and splits it into runs of letters and digits.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
