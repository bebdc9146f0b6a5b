package direct

import (
	"fmt"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
)

const radiologyPrompt = `You are an expert Radiologist Assistant AI.
Your task is to analyze the provided medical image and generate a structured preliminary report.

Strictly follow this reporting format:
**1. Modality:** (e.g., Chest X-ray, MRI, CT Scan)
**2. Orientation/View:** (e.g., PA View, Lateral)
**3. Key Findings:**
   - List objective observations.
   - Mention structures (Lungs, Heart, Bones, etc.).
   - Note any anomalies (opacity, fractures, effusion).
**4. Impression:** A concise summary of the findings.

**IMPORTANT DISCLAIMERS:**
- If the image is NOT a medical image, reply: "Invalid input: This does not appear to be a medical image."
- Always end the report with: "DISCLAIMER: This is an AI-generated prototype for research purposes only. Not for clinical diagnosis."`

const storyPrompt = `You are a gifted Arabic storyteller.
Look carefully at the provided image and write an original short story in Arabic inspired by it:
its place, its people or objects, its mood and colors.
The story must have a title, a beginning, a middle and an ending, and be between 300 and 600 words.
Reply with the story only, without any introduction or commentary.`

// StoryStyle is a catalog entry together with the instruction sent to the model.
type StoryStyle struct {
	ID     string
	Name   string
	Prompt string
}

// Styles is the built-in story style catalog. The first entry is the default.
var Styles = []StoryStyle{
	{
		ID:     "general_modern_standard",
		Name:   "عربي فصيح حديث (افتراضي)",
		Prompt: "اكتب بأسلوب عربي فصيح حديث وواضح. يجب أن تكون القصة سهلة الفهم وجذابة لجمهور واسع. تجنب التعقيد اللفظي المفرط وركز على سلاسة السرد وجماليات اللغة البسيطة والمعبرة.",
	},
	{
		ID:     "classical_poetic",
		Name:   "فصيح تراثي وشعري",
		Prompt: "اكتب بأسلوب لغوي تراثي، مستلهمًا جماليات النثر العربي القديم. استخدم مفردات غنية وبناء جمل فيه جزالة وفخامة. يمكن أن يتضمن السرد بعض الصور الشعرية والاستعارات البلاغية. اجعل القصة تبدو وكأنها قطعة من أدب العصور الذهبية.",
	},
	{
		ID:     "simple_children",
		Name:   "مبسط للأطفال",
		Prompt: "اكتب قصة مناسبة للأطفال، باستخدام لغة بسيطة جداً وجمل قصيرة ومفهومة. يجب أن تكون القصة مسلية وتحمل قيماً إيجابية. ركز على الحوارات الواضحة والأحداث المشوقة. تجنب الكلمات الصعبة أو المفاهيم المجردة.",
	},
	{
		ID:     "suspense_mystery",
		Name:   "تشويق وغموض",
		Prompt: "اكتب بأسلوب يركز على التشويق والغموض. استخدم بناءاً سردياً يزيد من التوتر تدريجياً، مع تلميحات وإشارات مبهمة تثير فضول القارئ. يجب أن تكون النهاية مفاجئة أو تكشف سراً غير متوقع. اللغة يجب أن تكون دقيقة وموحية.",
	},
	{
		ID:     "humorous_sarcastic",
		Name:   "فكاهي وساخر",
		Prompt: "اكتب بأسلوب فكاهي وساخر. استخدم المفارقات اللفظية والمواقف المضحكة. يمكن أن يكون السرد ناقداً بطريقة غير مباشرة. اللغة يجب أن تكون حيوية ومليئة بالذكاء اللفظي.",
	},
}

// Catalog returns Styles as the backend exposes them.
func Catalog() []backend.Style {
	out := make([]backend.Style, 0, len(Styles))
	for _, s := range Styles {
		out = append(out, backend.Style{ID: s.ID, Name: s.Name})
	}
	return out
}

func findStyle(id string) (StoryStyle, bool) {
	for _, s := range Styles {
		if s.ID == id {
			return s, true
		}
	}
	return StoryStyle{}, false
}

// SystemPrompt builds the instruction for variant v. styleID is only
// consulted for the styled story variant; empty means the default style.
func SystemPrompt(v backend.Variant, styleID string) (string, error) {
	switch v {
	case backend.VariantReport:
		return radiologyPrompt, nil
	case backend.VariantStory:
		return storyPrompt, nil
	case backend.VariantStyledStory:
		if styleID == "" {
			styleID = Styles[0].ID
		}
		st, ok := findStyle(styleID)
		if !ok {
			return "", fmt.Errorf("unknown style %q", styleID)
		}
		return storyPrompt + "\n\nWriting style:\n" + st.Prompt, nil
	default:
		return "", fmt.Errorf("unknown variant %q", v)
	}
}
