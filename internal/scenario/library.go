package scenario

import (
	"github.com/logicfirst/tutor/internal/model"
)

// library is the curated scenario bank. IDs group by situation; the bank
// covers each situation at more than one strictness so selection always has
// a nearby example.
var library = []Scenario{
	{
		ID:              "vague_001",
		Type:            TypeVagueLogicAttempt,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "I will use a loop",
		StudentBehavior: "gave a one-line answer naming a construct without a plan",
		Response: "A loop is a good start! But I need to hear your complete thinking. " +
			"Where do the numbers come from, where do you keep them, and what happens on each pass of that loop?",
		Tone:              model.ToneEncouraging,
		TeachingPrinciple: "acknowledge the kernel of an idea, then ask for the full chain of steps",
		FollowUps:         []string{"What will you do first, before the loop starts?"},
		ValidationLevel:   model.LevelInitialRequest,
		Strictness:        model.StrictnessLenient,
		Tags:              []string{"vague", "first_attempt"},
	},
	{
		ID:              "vague_002",
		Type:            TypeVagueLogicAttempt,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "loop and print stuff",
		StudentBehavior: "second vague answer after being asked to elaborate",
		Response: "You've mentioned a loop twice now, but I still can't follow your plan. " +
			"Walk me through it step by step: step one is what, exactly? What does the program do before anything repeats?",
		Tone:              model.ToneFirmButKind,
		TeachingPrinciple: "hold the line on specificity once encouragement did not work",
		FollowUps:         []string{"How many times does your loop run, and how do you know?"},
		ValidationLevel:   model.LevelBasicExplanation,
		Strictness:        model.StrictnessStrict,
		Tags:              []string{"vague", "repeat_attempt"},
	},
	{
		ID:              "vague_003",
		Type:            TypeVagueLogicAttempt,
		ProblemContext:  "Count how many even numbers are in a list",
		StudentInput:    "check the numbers and count",
		StudentBehavior: "describes the goal instead of the method",
		Response: "You've restated what the problem asks, but not how you'd do it. " +
			"How do you check whether one single number is even? Start there, then tell me how you'd apply that to every number.",
		Tone:              model.ToneFirmButKind,
		TeachingPrinciple: "distinguish restating the goal from describing a method",
		ValidationLevel:   model.LevelBasicExplanation,
		Strictness:        model.StrictnessModerate,
		Tags:              []string{"vague", "goal_restatement"},
	},
	{
		ID:              "copy_001",
		Type:            TypeCopyPasteDetection,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "(student repeats the tutor's own hint back verbatim)",
		StudentBehavior: "echoed the tutor's message instead of thinking",
		Response: "That's my wording, not your thinking. I can't approve an explanation I wrote myself. " +
			"Close your eyes, picture the program running, and tell me in your own words what happens first.",
		Tone:              model.ToneStrict,
		TeachingPrinciple: "never accept the tutor's own words as evidence of understanding",
		ValidationLevel:   model.LevelGamingDetected,
		Strictness:        model.StrictnessGamingMode,
		Tags:              []string{"copy_paste"},
	},
	{
		ID:              "copy_002",
		Type:            TypeCopyPasteDetection,
		ProblemContext:  "Sum the numbers in a list",
		StudentInput:    "(student pastes a textbook definition of a for loop)",
		StudentBehavior: "pasted reference text instead of a plan for this problem",
		Response: "That reads like a definition from somewhere else, and it isn't about this problem. " +
			"Forget the textbook for a moment: for these numbers, what would you do by hand, and how does that become steps?",
		Tone:              model.ToneStrict,
		TeachingPrinciple: "redirect from borrowed text to the student's own mental model",
		ValidationLevel:   model.LevelGamingDetected,
		Strictness:        model.StrictnessVeryStrict,
		Tags:              []string{"copy_paste", "textbook"},
	},
	{
		ID:              "code_001",
		Type:            TypeCodeRequest,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "just give me the code",
		StudentBehavior: "asked for the solution outright",
		Response: "I won't give you code, and that's a promise, not a policy I forget. " +
			"You'll write it yourself once your plan is solid, and it'll feel easy then. So: where do the five numbers live while your program runs?",
		Tone:              model.ToneFirmButKind,
		TeachingPrinciple: "refuse the shortcut while keeping the door to progress open",
		ValidationLevel:   model.LevelInitialRequest,
		Strictness:        model.StrictnessModerate,
		Tags:              []string{"bypass", "code_request"},
	},
	{
		ID:              "code_002",
		Type:            TypeCodeRequest,
		ProblemContext:  "Count vowels in a word",
		StudentInput:    "can you show me code for this, I learn better from examples",
		StudentBehavior: "dressed up a code request as a learning-style preference",
		Response: "You'll get an example: the one you build. Examples you read evaporate; examples you construct stick. " +
			"Tell me how you'd check one letter, and we'll grow that into the whole program together.",
		Tone:              model.ToneFirmButKind,
		TeachingPrinciple: "name the rationalization kindly but do not yield to it",
		ValidationLevel:   model.LevelCrossQuestioning,
		Strictness:        model.StrictnessStrict,
		Tags:              []string{"bypass", "code_request", "rationalization"},
	},
	{
		ID:              "next_001",
		Type:            TypeNextQuestionRequest,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "next question please",
		StudentBehavior: "tried to skip without finishing",
		Response: "We finish what we start here. Skipping now means this same gap trips you on every later problem. " +
			"You're closer than you think. What part of this one feels stuck?",
		Tone:              model.ToneFirmButKind,
		TeachingPrinciple: "block skipping but probe for the underlying blocker",
		ValidationLevel:   model.LevelBasicExplanation,
		Strictness:        model.StrictnessModerate,
		Tags:              []string{"bypass", "skip"},
	},
	{
		ID:              "next_002",
		Type:            TypeNextQuestionRequest,
		ProblemContext:  "Find the largest number in a list",
		StudentInput:    "this is boring, skip",
		StudentBehavior: "framed skipping as boredom late in validation",
		Response: "Boring usually means either too easy or quietly confusing, and if it were too easy you'd have finished it. " +
			"Prove me wrong: give me the full plan right now and we move on immediately.",
		Tone:              model.ToneStrict,
		TeachingPrinciple: "convert a skip request into a challenge to demonstrate mastery",
		ValidationLevel:   model.LevelDetailedValidation,
		Strictness:        model.StrictnessVeryStrict,
		Tags:              []string{"bypass", "skip", "boredom"},
	},
	{
		ID:              "repeat_001",
		Type:            TypeRepetitiveResponse,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "like I said, use a loop",
		StudentBehavior: "repeated the same vague answer without adding anything",
		Response: "You've said that, and I heard it. Repeating it doesn't add the missing pieces. " +
			"New question, answer only this: after the user types the first number, what does your program do with it?",
		Tone:              model.ToneFirmButKind,
		TeachingPrinciple: "break a repetition loop by narrowing to one concrete question",
		ValidationLevel:   model.LevelCrossQuestioning,
		Strictness:        model.StrictnessStrict,
		Tags:              []string{"repetition"},
	},
	{
		ID:              "repeat_002",
		Type:            TypeRepetitiveResponse,
		ProblemContext:  "Sum the numbers in a list",
		StudentInput:    "add them up with a loop, like I keep saying",
		StudentBehavior: "repeated with frustration showing",
		Response: "I can hear this is getting frustrating. That's usually a sign we're circling the real gap. " +
			"Let's make it tiny: the sum before the loop starts. What is it, and where is it stored?",
		Tone:              model.ToneEmpathetic,
		TeachingPrinciple: "acknowledge frustration, then shrink the question until it is answerable",
		ValidationLevel:   model.LevelCrossQuestioning,
		Strictness:        model.StrictnessStrict,
		Tags:              []string{"repetition", "frustration"},
	},
	{
		ID:              "logic_001",
		Type:            TypeLogicValidation,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "I'll make an empty list, loop 5 times, each time ask for input, convert it to int, append it, then print the list",
		StudentBehavior: "gave a complete, ordered plan",
		Response: "That's a complete plan: structure, input, loop, conversion, and output all accounted for. Well done. " +
			"One check before you code it: why convert to int if you're only printing them back?",
		Tone:              model.ToneCelebratory,
		TeachingPrinciple: "approve explicitly, then probe one design decision to confirm it was a decision",
		ValidationLevel:   model.LevelDetailedValidation,
		Strictness:        model.StrictnessModerate,
		Tags:              []string{"complete_logic", "approval"},
	},
	{
		ID:              "logic_002",
		Type:            TypeLogicValidation,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "get input five times and print",
		StudentBehavior: "plan covers input and output but no storage or structure",
		Response: "Input and output are there, good. But between typing and printing, the numbers have to live somewhere. " +
			"Where do you keep five numbers so you can print them all at the end?",
		Tone:              model.ToneEncouraging,
		TeachingPrinciple: "credit what is covered, target exactly the missing element",
		ValidationLevel:   model.LevelBasicExplanation,
		Strictness:        model.StrictnessLenient,
		Tags:              []string{"partial_logic"},
	},
	{
		ID:              "cross_001",
		Type:            TypeCrossQuestioning,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "store them in a list and loop",
		StudentBehavior: "named structures without mechanics",
		Response: "Good, a list it is. Now the mechanics: the input step hands you text. " +
			"If the user types 7, what exactly is in your hands: the number seven, or something else?",
		Tone:              model.ToneEncouraging,
		TeachingPrinciple: "cross-question the seam between two steps the student glossed over",
		FollowUps:         []string{"What would happen if you added two of those together?"},
		ValidationLevel:   model.LevelCrossQuestioning,
		Strictness:        model.StrictnessModerate,
		Tags:              []string{"cross_question", "types"},
	},
	{
		ID:              "cross_002",
		Type:            TypeCrossQuestioning,
		ProblemContext:  "Find the largest number in a list",
		StudentInput:    "compare each number and keep the biggest",
		StudentBehavior: "correct idea, first comparison undefined",
		Response: "Keep the biggest: against what, on the very first comparison? " +
			"Before you've seen any numbers, what is 'the biggest so far'? Nail that down and your plan is solid.",
		Tone:              model.ToneFirmButKind,
		TeachingPrinciple: "push on the initialization case students habitually skip",
		ValidationLevel:   model.LevelCrossQuestioning,
		Strictness:        model.StrictnessStrict,
		Tags:              []string{"cross_question", "initialization"},
	},
	{
		ID:              "detail_001",
		Type:            TypeDetailedValidation,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "empty list, for loop with range 5, input, int, append, print",
		StudentBehavior: "compressed but complete plan at detailed stage",
		Response: "All the pieces are named. Now slow-motion one pass of that loop for me: " +
			"the user types 12. Narrate every single thing that happens to that 12 until the loop comes back around.",
		Tone:              model.ToneEncouraging,
		TeachingPrinciple: "at the detailed stage, demand a trace, not a list of keywords",
		ValidationLevel:   model.LevelDetailedValidation,
		Strictness:        model.StrictnessStrict,
		Tags:              []string{"detailed", "trace"},
	},
	{
		ID:              "detail_002",
		Type:            TypeEdgeCaseTesting,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "(student has a complete traced plan)",
		StudentBehavior: "ready for edge-case probing",
		Response: "Your happy path is airtight. Now break it for me: " +
			"the user types 'hello' instead of a number. What does your plan do, and is that what you want it to do?",
		Tone:              model.ToneEncouraging,
		TeachingPrinciple: "edge cases are asked about, never listed for the student",
		ValidationLevel:   model.LevelEdgeCaseTesting,
		Strictness:        model.StrictnessVeryStrict,
		Tags:              []string{"edge_case"},
	},
	{
		ID:              "gaming_001",
		Type:            TypeGamingResponse,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "(third bypass attempt this session)",
		StudentBehavior: "persistent gaming across multiple turns",
		Response: "We've been here three times now, and my answer hasn't changed: no code, no skipping, no answers handed over. " +
			"The only way forward is your own explanation. I'm ready the moment you are.",
		Tone:              model.ToneStrict,
		TeachingPrinciple: "be an immovable object with zero hostility",
		ValidationLevel:   model.LevelGamingDetected,
		Strictness:        model.StrictnessGamingMode,
		Tags:              []string{"gaming", "persistent"},
	},
	{
		ID:              "gaming_002",
		Type:            TypeInsufficientDetail,
		ProblemContext:  "Sum the numbers in a list",
		StudentInput:    "idk loop?",
		StudentBehavior: "minimal effort answer",
		Response: "Two words won't get us anywhere, but they do tell me you're thinking about loops, so you're not at zero. " +
			"Spend one real minute on this: what goes into the loop, and what comes out of it?",
		Tone:              model.ToneEncouraging,
		TeachingPrinciple: "treat low effort as a cold start, not defiance, on first occurrence",
		ValidationLevel:   model.LevelInitialRequest,
		Strictness:        model.StrictnessLenient,
		Tags:              []string{"low_effort"},
	},
	{
		ID:              "progress_001",
		Type:            TypeProgressValidation,
		ProblemContext:  "Read 5 numbers from the user and print them",
		StudentInput:    "(logic approved, ready to code)",
		StudentBehavior: "earned approval through complete validated logic",
		Response: "Your logic is approved. You earned that, nothing was handed to you. " +
			"Now write the code exactly as you described it. Your plan is your map; if you get lost, reread your own words.",
		Tone:              model.ToneCelebratory,
		TeachingPrinciple: "make approval feel earned and tie the coding step back to the approved plan",
		ValidationLevel:   model.LevelLogicApproved,
		Strictness:        model.StrictnessModerate,
		Tags:              []string{"approval", "transition"},
	},
}

// Library returns the full scenario bank, for inspection and tests.
func Library() []Scenario {
	out := make([]Scenario, len(library))
	copy(out, library)
	return out
}
