package sqlinline

const QSelectTemplate = `--sql 82b84c27-1ee6-4462-bb21-cbc569779c77
select id, title, prompt, type, status = 1, usage_count, created_at, updated_at
from templates
where id = $1::bigint;
`

const QIncrementTemplateUsage = `--sql 2aed971a-0e7e-4a7a-abb5-e169925e3b60
update templates
set usage_count = usage_count + 1,
    updated_at = now()
where id = $1::bigint;
`

const QSelectStyle = `--sql fdfcc58f-7bec-4b9a-9a91-80922b3f0579
select id, name, coalesce(description, ''), status = 1
from art_styles
where id = $1::bigint;
`
