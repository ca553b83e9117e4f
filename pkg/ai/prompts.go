package ai

const ExtractionPrompt = `
# Task Context
You are an analyst mapping community service systems. You will be provided
with an excerpt from a strategy, report, or evaluation document.

# Background Data
%s

# Detailed Task Description & Rules
- Extract the services, themes, outcomes, and contextual factors the excerpt
  actually describes. Do not invent entities that are merely implied.
- Entity types are exactly: "service", "theme", "outcome", "factor".
- Relationships connect two extracted entities by name. Relationship types are
  exactly: "supports", "blocks", "enables", "influences", "requires".
- Relationship strength is one of: "weak", "medium", "strong".
- Score every entity and relationship with a confidence between 0.0 and 1.0
  reflecting how directly the excerpt supports it.
- Quote a short evidence snippet from the excerpt for each item.
- Use the names the document uses. Prefer "Youth Hub Drop-in Service" over a
  paraphrase like "youth program".

# Examples
Given "The Youth Hub supports improved school attendance, though funding cuts
threaten its opening hours":
- entity: {"name": "Youth Hub", "type": "service", ...}
- entity: {"name": "School Attendance", "type": "outcome", ...}
- entity: {"name": "Funding Cuts", "type": "factor", ...}
- relationship: {"from": "Youth Hub", "to": "School Attendance", "type": "supports", ...}
- relationship: {"from": "Funding Cuts", "to": "Youth Hub", "type": "blocks", ...}

# Output Formatting
Return a JSON object with "entities" and "relationships" arrays matching the
provided schema. Return empty arrays when the excerpt contains no systems
content.
`

const SummaryPrompt = `
# Task Context
You are an analyst mapping community service systems. You will be provided
with the entities and relationships extracted from one document.

# Background Data
Entities:
%s

Relationships:
%s

# Detailed Task Description & Rules
- Write a short prose summary of what this document describes: the main
  services, the outcomes they work towards, and the factors helping or
  hindering them.
- Stick to the listed entities and relationships. Do not add outside
  knowledge.
- Two to three sentences, plain text, no headings or bullet points.
`
